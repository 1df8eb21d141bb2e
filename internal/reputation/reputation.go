// Package reputation maintains a bounded, time-decaying trust score per
// agent from discrete compliance, contract, and endorsement events.
package reputation

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// NeutralScore is both the starting score and the decay attractor.
	NeutralScore = 50.0
	MinScore     = 0.0
	MaxScore     = 100.0

	complianceDelta = 2.0
	violationDelta  = -5.0
	fulfilledDelta  = 3.0
	breachedDelta   = -10.0
	endorseBase     = 5.0

	// DefaultHalfLifeDays is the decay half-life: a score's deviation from
	// neutral halves every 30 days of inactivity.
	DefaultHalfLifeDays = 30.0

	historyLimit = 100
)

type EventType string

const (
	EventCompliance  EventType = "compliance"
	EventContract    EventType = "contract"
	EventEndorsement EventType = "endorsement"
)

// ScoreEvent is one recorded score change.
type ScoreEvent struct {
	Type      EventType `json:"type"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Score is a read-only copy of an agent's reputation state.
type Score struct {
	AgentID     string       `json:"agent_id"`
	Current     float64      `json:"current_score"`
	History     []ScoreEvent `json:"history,omitempty"`
	LastUpdated time.Time    `json:"last_updated"`
}

type scoreState struct {
	current     float64
	history     []ScoreEvent
	lastUpdated time.Time
}

type Options struct {
	DecayEnabled bool
	HalfLifeDays float64
	Logger       *slog.Logger
}

// System owns the per-agent score map behind a single mutex.
type System struct {
	mu     sync.Mutex
	scores map[string]*scoreState

	decayEnabled bool
	halfLifeDays float64
	logger       *slog.Logger
	nowFn        func() time.Time
}

func New(opts Options) *System {
	if opts.HalfLifeDays <= 0 {
		opts.HalfLifeDays = DefaultHalfLifeDays
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &System{
		scores:       make(map[string]*scoreState),
		decayEnabled: opts.DecayEnabled,
		halfLifeDays: opts.HalfLifeDays,
		logger:       opts.Logger,
		nowFn:        time.Now,
	}
}

// GetScore returns the agent's score, creating it at neutral on first
// access and applying decay for elapsed time.
func (s *System) GetScore(agentID string) Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(agentID)
	s.decayLocked(state)
	return copyScore(agentID, state)
}

// TrustLevel buckets a score into the coarse trust bands.
func TrustLevel(score float64) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 50:
		return "medium"
	case score >= 20:
		return "low"
	default:
		return "untrusted"
	}
}

// RecordCompliance applies the fixed compliance delta: +2 for a compliant
// event, -5 for a violation.
func (s *System) RecordCompliance(agentID string, passed bool, reason string) Score {
	delta := complianceDelta
	if !passed {
		delta = violationDelta
	}
	return s.apply(agentID, EventCompliance, delta, reason)
}

// RecordContractEvent applies the contract delta: +3 fulfilled, -10 breached.
func (s *System) RecordContractEvent(agentID string, fulfilled bool, contractID string) Score {
	delta := fulfilledDelta
	if !fulfilled {
		delta = breachedDelta
	}
	return s.apply(agentID, EventContract, delta, "contract "+contractID)
}

// RecordEndorsement applies an endorsement delta scaled by the endorser's
// own normalized score, so low-trust agents cannot meaningfully boost (or
// sink) others.
func (s *System) RecordEndorsement(agentID, endorserID string, positive bool) Score {
	s.mu.Lock()
	endorser := s.stateLocked(endorserID)
	s.decayLocked(endorser)
	weight := endorser.current / MaxScore
	s.mu.Unlock()

	delta := endorseBase * weight
	if !positive {
		delta = -delta
	}
	return s.apply(agentID, EventEndorsement, delta, "endorsement by "+endorserID)
}

func (s *System) apply(agentID string, typ EventType, delta float64, reason string) Score {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.stateLocked(agentID)
	s.decayLocked(state)

	state.current = clamp(state.current + delta)
	state.lastUpdated = s.nowFn()
	state.history = append(state.history, ScoreEvent{
		Type:      typ,
		Delta:     delta,
		Reason:    reason,
		Timestamp: state.lastUpdated,
	})
	if len(state.history) > historyLimit {
		state.history = state.history[len(state.history)-historyLimit:]
	}
	return copyScore(agentID, state)
}

func (s *System) stateLocked(agentID string) *scoreState {
	state, ok := s.scores[agentID]
	if !ok {
		state = &scoreState{current: NeutralScore, lastUpdated: s.nowFn()}
		s.scores[agentID] = state
	}
	return state
}

// decayLocked relaxes the score's deviation from neutral by the elapsed
// half-lives since the last update. It never crosses neutral.
func (s *System) decayLocked(state *scoreState) {
	if !s.decayEnabled {
		return
	}
	now := s.nowFn()
	elapsed := now.Sub(state.lastUpdated)
	if elapsed <= 0 {
		return
	}
	days := elapsed.Hours() / 24
	factor := math.Pow(0.5, days/s.halfLifeDays)
	state.current = NeutralScore + (state.current-NeutralScore)*factor
	state.lastUpdated = now
}

func clamp(v float64) float64 {
	return math.Min(MaxScore, math.Max(MinScore, v))
}

func copyScore(agentID string, state *scoreState) Score {
	history := make([]ScoreEvent, len(state.history))
	copy(history, state.history)
	return Score{
		AgentID:     agentID,
		Current:     state.current,
		History:     history,
		LastUpdated: state.lastUpdated,
	}
}
