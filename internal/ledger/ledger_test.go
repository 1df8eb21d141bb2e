package ledger

import (
	"errors"
	"testing"

	"github.com/davidahmann/verity/internal/crypto"
	"github.com/davidahmann/verity/pkg/types"
)

func testAgent(id string) types.Agent {
	return types.Agent{ID: id, Type: types.AgentWorker, PublicKey: "pk-" + id}
}

func decisionAction(desc string) types.Action {
	return types.Action{Type: types.ActionDecision, Description: desc}
}

func mustAppend(t *testing.T, l *Ledger, agent types.Agent, desc string) types.Event {
	t.Helper()
	ev, err := l.Append(agent, decisionAction(desc), types.AxiomContext{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return ev
}

func TestAppendChain(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	agent := testAgent("agent-a")
	for _, desc := range []string{"Decision: buy", "Decision: sell", "Decision: hold"} {
		mustAppend(t, l, agent, desc)
	}

	events := l.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Sequence != uint64(i)+1 {
			t.Fatalf("event %d has sequence %d", i, ev.Sequence)
		}
	}
	if events[0].PreviousHash != "" {
		t.Fatalf("genesis previous_hash should be empty, got %q", events[0].PreviousHash)
	}
	if events[1].PreviousHash != events[0].Hash {
		t.Fatal("event 1 does not link to event 0")
	}

	result := l.Verify()
	if !result.Valid {
		t.Fatalf("chain should be valid: %s", result.ErrorMessage)
	}
	if result.EventsValidated != 3 {
		t.Fatalf("events_validated = %d, want 3", result.EventsValidated)
	}
}

func TestVerifyDetectsTamperedHash(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	agent := testAgent("agent-a")
	for _, desc := range []string{"Decision: buy", "Decision: sell", "Decision: hold"} {
		mustAppend(t, l, agent, desc)
	}

	l.events[1].Hash = flipLastChar(l.events[1].Hash)

	result := l.Verify()
	if result.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if result.ErrorIndex == nil || *result.ErrorIndex != 1 {
		t.Fatalf("error_index = %v, want 1", result.ErrorIndex)
	}
	if result.EventsValidated != 1 {
		t.Fatalf("events_validated = %d, want 1", result.EventsValidated)
	}
}

func TestFindTamperingReportsAllBadIndices(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	agent := testAgent("agent-a")
	for i := 0; i < 4; i++ {
		mustAppend(t, l, agent, "Decision: step")
	}

	// Mutating a field invalidates the event's own hash; the next event's
	// link is still consistent with the stored (stale) hash.
	l.events[1].Action.Description = "Decision: edited"

	bad := FindTampering(l.Events())
	if len(bad) != 1 || bad[0] != 1 {
		t.Fatalf("tampered indices = %v, want [1]", bad)
	}

	l.events[2].Hash = flipLastChar(l.events[2].Hash)
	bad = FindTampering(l.Events())
	// Index 2 fails its own hash; index 3's previous_hash no longer matches.
	if len(bad) != 3 {
		t.Fatalf("tampered indices = %v, want three entries", bad)
	}
}

func TestAppendEventRejectsBadLink(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	agent := testAgent("agent-a")
	tail := mustAppend(t, l, agent, "Decision: base")

	bad := tail
	bad.EventID = "replica-1"
	bad.Sequence = 5
	if err := l.AppendEvent(bad); !errors.Is(err, ErrChainLink) {
		t.Fatalf("expected ErrChainLink for bad sequence, got %v", err)
	}

	bad = tail
	bad.EventID = "replica-2"
	bad.Sequence = 2
	bad.PreviousHash = "sha256:wrong"
	if err := l.AppendEvent(bad); !errors.Is(err, ErrChainLink) {
		t.Fatalf("expected ErrChainLink for bad previous_hash, got %v", err)
	}
}

func TestAppendEventAcceptsValidReplica(t *testing.T) {
	source, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	replica, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	agent := testAgent("agent-a")
	for i := 0; i < 3; i++ {
		mustAppend(t, source, agent, "Decision: step")
	}

	for _, ev := range source.Events() {
		if err := replica.AppendEvent(ev); err != nil {
			t.Fatalf("replicate: %v", err)
		}
	}
	result := replica.Verify()
	if !result.Valid || result.EventsValidated != 3 {
		t.Fatalf("replica chain invalid: %+v", result)
	}
}

func TestSignedEvents(t *testing.T) {
	signer, err := crypto.NewHMACSigner("test", []byte("secret"))
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	l, err := New(Options{Signer: signer})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	agent := testAgent("agent-a")
	ev := mustAppend(t, l, agent, "Decision: signed")
	if ev.Signature == "" {
		t.Fatal("event should be signed")
	}

	if bad := l.VerifySignatures(signer.Verify); len(bad) != 0 {
		t.Fatalf("signature sweep flagged %v", bad)
	}

	l.events[0].Signature = "hmac:deadbeef"
	if bad := l.VerifySignatures(signer.Verify); len(bad) != 1 || bad[0] != 0 {
		t.Fatalf("signature sweep = %v, want [0]", bad)
	}
}

func TestUnsignedLedger(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ev := mustAppend(t, l, testAgent("agent-a"), "Decision: plain")
	if ev.Signature != "" {
		t.Fatalf("expected unsigned event, got %q", ev.Signature)
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var seen []string
	l.OnAppend(func(ev types.Event) { panic("bad listener") })
	l.OnAppend(func(ev types.Event) { seen = append(seen, ev.EventID) })

	ev := mustAppend(t, l, testAgent("agent-a"), "Decision: notify")
	if len(seen) != 1 || seen[0] != ev.EventID {
		t.Fatalf("second listener not notified: %v", seen)
	}
}

func TestSetVerificationStatusKeepsChainValid(t *testing.T) {
	l, err := New(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ev := mustAppend(t, l, testAgent("agent-a"), "Decision: status")

	if !l.SetVerificationStatus(ev.EventID, types.StatusVerified) {
		t.Fatal("status update failed")
	}
	if l.SetVerificationStatus("missing", types.StatusVerified) {
		t.Fatal("status update on unknown event should fail")
	}

	result := l.Verify()
	if !result.Valid {
		t.Fatalf("status update broke the chain: %s", result.ErrorMessage)
	}
	got, _ := l.GetByID(ev.EventID)
	if got.VerificationStatus != types.StatusVerified {
		t.Fatalf("status = %q", got.VerificationStatus)
	}
}

func flipLastChar(s string) string {
	b := []byte(s)
	last := b[len(b)-1]
	if last == '0' {
		b[len(b)-1] = '1'
	} else {
		b[len(b)-1] = '0'
	}
	return string(b)
}
