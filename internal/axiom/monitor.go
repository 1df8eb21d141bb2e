package axiom

import (
	"log/slog"
	"sync"
	"time"

	"github.com/davidahmann/verity/pkg/types"
)

const (
	// DefaultEscalationWindow is the rolling window for per-agent violation
	// counting.
	DefaultEscalationWindow = 24 * time.Hour
	// DefaultEscalationThreshold is the violation count, within the window,
	// at which the aggregate status escalates.
	DefaultEscalationThreshold = 3
)

// ViolationRecord is one failed check kept in the per-agent history.
type ViolationRecord struct {
	AgentID   string    `json:"agent_id"`
	Axiom     string    `json:"axiom"`
	Reason    string    `json:"reason"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ViolationHandler is an observer invoked synchronously on any violation.
type ViolationHandler func(ev types.Event, failed []Result)

type MonitorOptions struct {
	Window    time.Duration
	Threshold int
	Logger    *slog.Logger
}

// Monitor runs all applicable verifiers against an event and aggregates a
// verdict. Escalation is tracked per agent, independent of which axiom was
// violated.
type Monitor struct {
	mu        sync.Mutex
	verifiers []Verifier
	handlers  []ViolationHandler
	history   map[string][]ViolationRecord

	window    time.Duration
	threshold int
	logger    *slog.Logger
	nowFn     func() time.Time
}

// NewMonitor builds a monitor preloaded with the six default verifiers.
func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.Window <= 0 {
		opts.Window = DefaultEscalationWindow
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultEscalationThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Monitor{
		verifiers: Defaults(),
		history:   make(map[string][]ViolationRecord),
		window:    opts.Window,
		threshold: opts.Threshold,
		logger:    opts.Logger,
		nowFn:     time.Now,
	}
}

// Register adds a verifier to the pipeline.
func (m *Monitor) Register(v Verifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifiers = append(m.verifiers, v)
}

// OnViolation registers an observer callback.
func (m *Monitor) OnViolation(fn ViolationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Check runs every applicable verifier over the event and returns all
// results plus the aggregate status. A panicking verifier yields a failing
// result with confidence 0 instead of aborting the batch.
func (m *Monitor) Check(ev types.Event) ([]Result, types.VerificationStatus) {
	m.mu.Lock()
	verifiers := make([]Verifier, len(m.verifiers))
	copy(verifiers, m.verifiers)
	m.mu.Unlock()

	results := make([]Result, 0, len(verifiers))
	failed := []Result{}
	for _, v := range verifiers {
		if !v.AppliesTo(ev) {
			continue
		}
		res := m.safeVerify(v, ev)
		results = append(results, res)
		if !res.Passed {
			failed = append(failed, res)
		}
	}

	if len(failed) == 0 {
		return results, types.StatusVerified
	}

	status := m.recordViolations(ev, failed)
	m.notify(ev, failed)
	return results, status
}

func (m *Monitor) safeVerify(v Verifier, ev types.Event) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("verifier panicked", "axiom", v.Axiom(), "panic", r)
			res = Result{
				Axiom:      v.Axiom(),
				Passed:     false,
				Reason:     "verifier panicked",
				Confidence: 0,
			}
		}
	}()
	return v.Verify(ev)
}

func (m *Monitor) recordViolations(ev types.Event, failed []Result) types.VerificationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	agentID := ev.Agent.ID
	for _, res := range failed {
		m.history[agentID] = append(m.history[agentID], ViolationRecord{
			AgentID:   agentID,
			Axiom:     res.Axiom,
			Reason:    res.Reason,
			EventID:   ev.EventID,
			Timestamp: now,
		})
	}

	if m.countInWindowLocked(agentID, now) >= m.threshold {
		return types.StatusEscalated
	}
	return types.StatusViolation
}

// ViolationHistory returns the full recorded history for an agent.
func (m *Monitor) ViolationHistory(agentID string) []ViolationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ViolationRecord, len(m.history[agentID]))
	copy(out, m.history[agentID])
	return out
}

// ViolationCount returns the agent's violation count within the rolling
// window.
func (m *Monitor) ViolationCount(agentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countInWindowLocked(agentID, m.nowFn())
}

func (m *Monitor) countInWindowLocked(agentID string, now time.Time) int {
	cutoff := now.Add(-m.window)
	count := 0
	for _, rec := range m.history[agentID] {
		if rec.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

func (m *Monitor) notify(ev types.Event, failed []Result) {
	m.mu.Lock()
	handlers := make([]ViolationHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("violation handler panicked", "event_id", ev.EventID, "panic", r)
				}
			}()
			fn(ev, failed)
		}()
	}
}
