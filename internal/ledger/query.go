package ledger

import (
	"time"

	"github.com/davidahmann/verity/pkg/types"
)

// Query filters the chain. Zero values mean "no constraint".
type Query struct {
	AgentID    string
	ActionType types.ActionType
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// Stats is the ledger's cached statistics surface.
type Stats struct {
	Events           int                      `json:"events"`
	ByAgent          map[string]int           `json:"by_agent"`
	ByActionType     map[types.ActionType]int `json:"by_action_type"`
	LastVerification *ChainValidationResult   `json:"last_verification,omitempty"`
}

// GetByID returns a copy of the event with the given id.
func (l *Ledger) GetByID(eventID string) (types.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.byID[eventID]
	if !ok {
		return types.Event{}, false
	}
	return l.events[idx], true
}

// GetBySequence returns a copy of the event with the given sequence number.
func (l *Ledger) GetBySequence(seq uint64) (types.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq < 1 || seq > uint64(len(l.events)) {
		return types.Event{}, false
	}
	return l.events[seq-1], true
}

// Events returns a copy of the full chain in append order.
func (l *Ledger) Events() []types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Find returns matching events newest-first, honoring offset and limit.
func (l *Ledger) Find(q Query) []types.Event {
	l.mu.Lock()
	snapshot := make([]types.Event, len(l.events))
	copy(snapshot, l.events)
	l.mu.Unlock()

	out := []types.Event{}
	skipped := 0
	for i := len(snapshot) - 1; i >= 0; i-- {
		ev := snapshot[i]
		if q.AgentID != "" && ev.Agent.ID != q.AgentID {
			continue
		}
		if q.ActionType != "" && ev.Action.Type != q.ActionType {
			continue
		}
		if !q.Since.IsZero() && ev.Timestamp.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !ev.Timestamp.Before(q.Until) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// Stats summarizes the chain plus the last cached verification result.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		Events:       len(l.events),
		ByAgent:      make(map[string]int),
		ByActionType: make(map[types.ActionType]int),
	}
	for _, ev := range l.events {
		s.ByAgent[ev.Agent.ID]++
		s.ByActionType[ev.Action.Type]++
	}
	if l.lastVerification != nil {
		cached := *l.lastVerification
		s.LastVerification = &cached
	}
	return s
}
