package escalation

import (
	"testing"

	"github.com/davidahmann/verity/internal/axiom"
	"github.com/davidahmann/verity/pkg/types"
)

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		axioms []string
		want   types.EscalationLevel
	}{
		{[]string{axiom.AxiomHonesty}, types.EscalationViolation},
		{[]string{axiom.AxiomGuardian}, types.EscalationCritical},
		{[]string{axiom.AxiomHonesty, axiom.AxiomGuardian}, types.EscalationCritical},
		{[]string{"sdg_climate"}, types.EscalationCritical},
		{nil, types.EscalationViolation},
	}
	for _, tc := range cases {
		if got := SeverityFor(tc.axioms); got != tc.want {
			t.Errorf("SeverityFor(%v) = %s, want %s", tc.axioms, got, tc.want)
		}
	}
}

func TestHandleViolationOpensRecord(t *testing.T) {
	m := NewManager(nil)

	ev := types.Event{
		EventID: "ev-1",
		Agent:   types.Agent{ID: "agent-1", Type: types.AgentWorker},
	}
	failed := []axiom.Result{
		{Axiom: axiom.AxiomHonesty, Passed: false, Reason: "deception indicator"},
	}

	esc := m.HandleViolation(ev, failed)
	if esc.Level != types.EscalationViolation {
		t.Fatalf("level %s, want violation", esc.Level)
	}
	if esc.Subject != "agent-1" || esc.Status != types.EscalationOpen {
		t.Fatalf("unexpected escalation: %+v", esc)
	}

	got, ok := m.Get(esc.ID)
	if !ok || got.Reason == "" {
		t.Fatalf("escalation not retrievable: %+v", got)
	}
}

func TestTransitions(t *testing.T) {
	m := NewManager(nil)
	esc := m.Open("test", "agent-1", "reason", types.EscalationViolation)

	if !m.Acknowledge(esc.ID, "operator") {
		t.Fatal("acknowledge failed")
	}
	got, _ := m.Get(esc.ID)
	if got.Status != types.EscalationAcknowledged || got.Assignee != "operator" {
		t.Fatalf("after acknowledge: %+v", got)
	}

	if !m.Investigate(esc.ID) {
		t.Fatal("investigate failed")
	}
	if !m.Resolve(esc.ID) {
		t.Fatal("resolve failed")
	}
	got, _ = m.Get(esc.ID)
	if got.Status != types.EscalationResolved {
		t.Fatalf("after resolve: %s", got.Status)
	}

	if m.Acknowledge("missing", "operator") {
		t.Fatal("transition on unknown escalation succeeded")
	}
}

func TestOpenEscalationsOrderedAndFiltered(t *testing.T) {
	m := NewManager(nil)

	first := m.Open("test", "a", "first", types.EscalationViolation)
	second := m.Open("test", "b", "second", types.EscalationCritical)
	third := m.Open("test", "c", "third", types.EscalationViolation)

	m.Resolve(second.ID)
	m.Dismiss(third.ID)

	open := m.OpenEscalations()
	if len(open) != 1 || open[0].ID != first.ID {
		t.Fatalf("open escalations: %+v", open)
	}

	fourth := m.Open("test", "d", "fourth", types.EscalationViolation)
	open = m.OpenEscalations()
	if len(open) != 2 || open[0].ID != first.ID || open[1].ID != fourth.ID {
		t.Fatalf("ordering wrong: %+v", open)
	}
}
