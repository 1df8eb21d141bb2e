// Package escalation consumes orchestrator violation callbacks and tracks
// the resulting incident records.
package escalation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidahmann/verity/internal/axiom"
	"github.com/davidahmann/verity/pkg/types"
)

// Manager owns escalation records behind a single mutex.
type Manager struct {
	mu          sync.Mutex
	escalations map[string]types.Escalation
	order       []string

	logger *slog.Logger
	nowFn  func() time.Time
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		escalations: make(map[string]types.Escalation),
		logger:      logger,
		nowFn:       time.Now,
	}
}

// HandleViolation opens an escalation for a failed verification. Severity
// starts at violation level and is bumped to critical when the guardian
// axiom or an SDG axiom was violated.
func (m *Manager) HandleViolation(ev types.Event, failed []axiom.Result) types.Escalation {
	axioms := make([]string, 0, len(failed))
	reasons := make([]string, 0, len(failed))
	for _, res := range failed {
		axioms = append(axioms, res.Axiom)
		reasons = append(reasons, res.Axiom+": "+res.Reason)
	}
	return m.Open(
		"orchestrator",
		ev.Agent.ID,
		strings.Join(reasons, "; "),
		SeverityFor(axioms),
	)
}

// SeverityFor maps violated axioms to an escalation level.
func SeverityFor(axioms []string) types.EscalationLevel {
	for _, a := range axioms {
		if a == axiom.AxiomGuardian || strings.HasPrefix(a, "sdg_") {
			return types.EscalationCritical
		}
	}
	return types.EscalationViolation
}

// Open records a new escalation.
func (m *Manager) Open(source, subject, reason string, level types.EscalationLevel) types.Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn().UTC()
	esc := types.Escalation{
		ID:        uuid.NewString(),
		Level:     level,
		Source:    source,
		Subject:   subject,
		Reason:    reason,
		Status:    types.EscalationOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.escalations[esc.ID] = esc
	m.order = append(m.order, esc.ID)
	m.logger.Info("escalation opened", "id", esc.ID, "level", string(level), "subject", subject)
	return esc
}

// Acknowledge assigns the escalation and marks it acknowledged.
func (m *Manager) Acknowledge(id, assignee string) bool {
	return m.transition(id, types.EscalationAcknowledged, assignee)
}

// Investigate marks the escalation as under investigation.
func (m *Manager) Investigate(id string) bool {
	return m.transition(id, types.EscalationInvestigating, "")
}

// Resolve closes the escalation as handled.
func (m *Manager) Resolve(id string) bool {
	return m.transition(id, types.EscalationResolved, "")
}

// Dismiss closes the escalation as a non-issue.
func (m *Manager) Dismiss(id string) bool {
	return m.transition(id, types.EscalationDismissed, "")
}

func (m *Manager) transition(id string, status types.EscalationStatus, assignee string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	esc, ok := m.escalations[id]
	if !ok {
		m.logger.Warn("transition on unknown escalation", "id", id)
		return false
	}
	esc.Status = status
	if assignee != "" {
		esc.Assignee = assignee
	}
	esc.UpdatedAt = m.nowFn().UTC()
	m.escalations[id] = esc
	return true
}

// Get returns a copy of the escalation.
func (m *Manager) Get(id string) (types.Escalation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	esc, ok := m.escalations[id]
	return esc, ok
}

// OpenEscalations returns all records still awaiting resolution, oldest
// first.
func (m *Manager) OpenEscalations() []types.Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []types.Escalation{}
	for _, id := range m.order {
		esc := m.escalations[id]
		switch esc.Status {
		case types.EscalationResolved, types.EscalationDismissed:
			continue
		}
		out = append(out, esc)
	}
	return out
}
