package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidahmann/verity/internal/crypto"
	"github.com/davidahmann/verity/pkg/types"
)

var ErrChainLink = errors.New("event does not extend the chain tail")

// Listener is notified synchronously after every append. Panics inside a
// listener are caught and logged, never surfaced to the appender.
type Listener func(types.Event)

type Options struct {
	// SnapshotPath, when set, is loaded eagerly at construction and rewritten
	// in full on every mutation.
	SnapshotPath string
	// Signer, when set, signs every appended event. Absent means unsigned.
	Signer crypto.Signer
	Logger *slog.Logger
}

// Ledger is the append-only hash-chained event store. One mutex guards all
// state; reads copy out, callers never hold references into storage.
type Ledger struct {
	mu        sync.Mutex
	events    []types.Event
	byID      map[string]int
	listeners []Listener

	path   string
	signer crypto.Signer
	logger *slog.Logger

	lastVerification *ChainValidationResult

	nowFn func() time.Time
}

func New(opts Options) (*Ledger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		byID:   make(map[string]int),
		path:   opts.SnapshotPath,
		signer: opts.Signer,
		logger: logger,
		nowFn:  time.Now,
	}
	if l.path != "" {
		if err := l.loadSnapshot(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// OnAppend registers a listener invoked synchronously for every new event.
func (l *Ledger) OnAppend(fn Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Append records a new action as the next event in the chain: assigns the
// sequence number and previous hash, signs (if a signer is configured),
// hashes, persists, and notifies listeners.
func (l *Ledger) Append(agent types.Agent, action types.Action, actx types.AxiomContext) (types.Event, error) {
	ev, listeners, err := l.appendLocked(agent, action, actx)
	if err != nil {
		return types.Event{}, err
	}
	for _, fn := range listeners {
		l.notify(fn, ev)
	}
	return ev, nil
}

func (l *Ledger) appendLocked(agent types.Agent, action types.Action, actx types.AxiomContext) (types.Event, []Listener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := types.Event{
		EventID:      uuid.NewString(),
		Timestamp:    l.nowFn().UTC(),
		Sequence:     uint64(len(l.events)) + 1,
		Agent:        agent,
		Action:       action,
		AxiomContext: actx,
	}
	if len(l.events) > 0 {
		ev.PreviousHash = l.events[len(l.events)-1].Hash
	}

	if l.signer != nil {
		data, err := SigningBytes(ev)
		if err != nil {
			return types.Event{}, nil, err
		}
		sig, err := l.signer.Sign(data)
		if err != nil {
			return types.Event{}, nil, err
		}
		ev.Signature = sig
	}

	hash, err := ComputeHash(ev)
	if err != nil {
		return types.Event{}, nil, err
	}
	ev.Hash = hash

	l.events = append(l.events, ev)
	l.byID[ev.EventID] = len(l.events) - 1

	if l.path != "" {
		if err := l.saveLocked(); err != nil {
			l.events = l.events[:len(l.events)-1]
			delete(l.byID, ev.EventID)
			return types.Event{}, nil, err
		}
	}

	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	return ev, listeners, nil
}

// AppendEvent inserts a pre-built event, e.g. from verified replication.
// This is the one ledger operation that surfaces an error instead of a
// boolean: silently accepting a bad link would corrupt every later
// verification.
func (l *Ledger) AppendEvent(ev types.Event) error {
	inserted, listeners, err := l.appendEventLocked(ev)
	if err != nil {
		return err
	}
	for _, fn := range listeners {
		l.notify(fn, inserted)
	}
	return nil
}

func (l *Ledger) appendEventLocked(ev types.Event) (types.Event, []Listener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wantSeq := uint64(len(l.events)) + 1
	wantPrev := ""
	if len(l.events) > 0 {
		wantPrev = l.events[len(l.events)-1].Hash
	}
	if ev.Sequence != wantSeq {
		return types.Event{}, nil, fmt.Errorf("%w: sequence %d, tail expects %d", ErrChainLink, ev.Sequence, wantSeq)
	}
	if ev.PreviousHash != wantPrev {
		return types.Event{}, nil, fmt.Errorf("%w: previous_hash %q, tail hash %q", ErrChainLink, ev.PreviousHash, wantPrev)
	}
	if !VerifyHash(ev) {
		return types.Event{}, nil, fmt.Errorf("%w: event hash does not recompute", ErrChainLink)
	}

	l.events = append(l.events, ev)
	l.byID[ev.EventID] = len(l.events) - 1

	if l.path != "" {
		if err := l.saveLocked(); err != nil {
			l.events = l.events[:len(l.events)-1]
			delete(l.byID, ev.EventID)
			return types.Event{}, nil, err
		}
	}

	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	return ev, listeners, nil
}

// SetVerificationStatus updates post-hoc verification metadata. The status
// is outside the hashed form, so the chain stays intact.
func (l *Ledger) SetVerificationStatus(eventID string, status types.VerificationStatus) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.byID[eventID]
	if !ok {
		l.logger.Warn("verification status for unknown event", "event_id", eventID)
		return false
	}
	l.events[idx].VerificationStatus = status
	if l.path != "" {
		if err := l.saveLocked(); err != nil {
			l.logger.Warn("snapshot rewrite failed", "error", err)
		}
	}
	return true
}

func (l *Ledger) notify(fn Listener, ev types.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("ledger listener panicked", "event_id", ev.EventID, "panic", r)
		}
	}()
	fn(ev)
}
