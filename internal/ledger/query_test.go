package ledger

import (
	"path/filepath"
	"testing"

	"github.com/davidahmann/verity/pkg/types"
)

func TestFindFilters(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	alice := testAgent("alice")
	bob := testAgent("bob")
	mustAppend(t, l, alice, "Decision: one")
	mustAppend(t, l, bob, "Decision: two")
	if _, err := l.Append(alice, types.Action{Type: types.ActionMessage, Description: "hello"}, types.AxiomContext{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	byAgent := l.Find(Query{AgentID: "alice"})
	if len(byAgent) != 2 {
		t.Fatalf("agent filter returned %d events", len(byAgent))
	}
	// Newest first.
	if byAgent[0].Action.Type != types.ActionMessage {
		t.Fatalf("expected newest-first ordering, got %s", byAgent[0].Action.Type)
	}

	byType := l.Find(Query{ActionType: types.ActionDecision})
	if len(byType) != 2 {
		t.Fatalf("type filter returned %d events", len(byType))
	}

	paged := l.Find(Query{AgentID: "alice", Limit: 1, Offset: 1})
	if len(paged) != 1 || paged[0].Action.Description != "Decision: one" {
		t.Fatalf("pagination wrong: %+v", paged)
	}
}

func TestGetBySequenceAndID(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ev := mustAppend(t, l, testAgent("alice"), "Decision: lookup")

	bySeq, ok := l.GetBySequence(1)
	if !ok || bySeq.EventID != ev.EventID {
		t.Fatal("lookup by sequence failed")
	}
	if _, ok := l.GetBySequence(0); ok {
		t.Fatal("sequence 0 should not exist")
	}
	if _, ok := l.GetBySequence(2); ok {
		t.Fatal("sequence past tail should not exist")
	}

	byID, ok := l.GetByID(ev.EventID)
	if !ok || byID.Sequence != 1 {
		t.Fatal("lookup by id failed")
	}
	if _, ok := l.GetByID("missing"); ok {
		t.Fatal("unknown id should not resolve")
	}
}

func TestStats(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	mustAppend(t, l, testAgent("alice"), "Decision: a")
	mustAppend(t, l, testAgent("alice"), "Decision: b")
	mustAppend(t, l, testAgent("bob"), "Decision: c")

	s := l.Stats()
	if s.Events != 3 || s.ByAgent["alice"] != 2 || s.ByActionType[types.ActionDecision] != 3 {
		t.Fatalf("stats wrong: %+v", s)
	}
	if s.LastVerification != nil {
		t.Fatal("no verification cached yet")
	}

	l.Verify()
	s = l.Stats()
	if s.LastVerification == nil || !s.LastVerification.Valid {
		t.Fatal("verification result not cached")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l, err := New(Options{SnapshotPath: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	mustAppend(t, l, testAgent("alice"), "Decision: persisted")
	mustAppend(t, l, testAgent("bob"), "Decision: also persisted")

	reloaded, err := New(Options{SnapshotPath: path})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded %d events, want 2", reloaded.Len())
	}

	result := reloaded.Verify()
	if !result.Valid {
		t.Fatalf("reloaded chain invalid: %s", result.ErrorMessage)
	}

	// The reloaded ledger keeps extending the same chain.
	mustAppend(t, reloaded, testAgent("alice"), "Decision: appended after reload")
	result = reloaded.Verify()
	if !result.Valid || result.EventsValidated != 3 {
		t.Fatalf("extended chain invalid: %+v", result)
	}
}
