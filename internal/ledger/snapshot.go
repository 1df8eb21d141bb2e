package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davidahmann/verity/pkg/types"
)

// snapshotFile is the persisted event-store layout: a full rewrite on every
// mutation, no incremental format.
type snapshotFile struct {
	Sequence uint64        `json:"sequence"`
	Events   []types.Event `json:"events"`
}

func (l *Ledger) loadSnapshot() error {
	// #nosec G304 -- path is operator-configured.
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap snapshotFile
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("corrupt ledger snapshot: %w", err)
	}
	if snap.Sequence != uint64(len(snap.Events)) {
		return fmt.Errorf("corrupt ledger snapshot: sequence %d with %d events", snap.Sequence, len(snap.Events))
	}

	l.events = snap.Events
	l.byID = make(map[string]int, len(snap.Events))
	for i, ev := range snap.Events {
		l.byID[ev.EventID] = i
	}
	return nil
}

func (l *Ledger) saveLocked() error {
	snap := snapshotFile{
		Sequence: uint64(len(l.events)),
		Events:   l.events,
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}
