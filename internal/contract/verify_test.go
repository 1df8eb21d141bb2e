package contract

import (
	"testing"
	"time"
)

// signedContract creates and fully signs a contract so it is active.
func signedContract(t *testing.T, r *Registry, capabilities map[string][]string, obligations map[string][]Obligation, prohibitions map[string][]string) Contract {
	t.Helper()
	c, err := r.CreateContract(twoParties(), capabilities, obligations, prohibitions, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, p := range c.Parties {
		if !r.Sign(c.ContractID, p.AgentID, "sig-"+p.AgentID) {
			t.Fatalf("sign %s", p.AgentID)
		}
	}
	got, _ := r.Get(c.ContractID)
	return got
}

func TestVerifyActionCapabilityAndProhibition(t *testing.T) {
	r := newTestRegistry(t)
	v := NewVerifier(r, nil)

	signedContract(t, r,
		map[string][]string{"worker": {"analyze"}},
		nil,
		map[string][]string{AllParties: {"delete"}},
	)

	res := v.VerifyAction("worker-agent", "analyze")
	if res.Status != StatusVerified {
		t.Fatalf("analyze should verify, got %s with %+v", res.Status, res.Violations)
	}

	res = v.VerifyAction("worker-agent", "delete")
	if res.Status != StatusViolation {
		t.Fatalf("delete should violate, got %s", res.Status)
	}
	foundProhibition := false
	for _, viol := range res.Violations {
		if viol.Type == ViolationProhibition {
			foundProhibition = true
		}
	}
	if !foundProhibition {
		t.Fatalf("expected a prohibition violation, got %+v", res.Violations)
	}
}

func TestVerifyActionMissingCapability(t *testing.T) {
	r := newTestRegistry(t)
	v := NewVerifier(r, nil)
	signedContract(t, r, map[string][]string{"worker": {"analyze"}}, nil, nil)

	res := v.VerifyAction("worker-agent", "deploy")
	if res.Status != StatusViolation {
		t.Fatalf("ungranted action should violate, got %s", res.Status)
	}
	if len(res.Violations) != 1 || res.Violations[0].Type != ViolationCapability {
		t.Fatalf("expected one capability violation, got %+v", res.Violations)
	}
}

func TestVerifyActionNoContract(t *testing.T) {
	r := newTestRegistry(t)
	v := NewVerifier(r, nil)

	if res := v.VerifyAction("loner", "anything"); res.Status != StatusNoContract {
		t.Fatalf("expected no_contract, got %s", res.Status)
	}
}

func TestVerifyMessageScopedToPair(t *testing.T) {
	r := newTestRegistry(t)
	v := NewVerifier(r, nil)
	signedContract(t, r, map[string][]string{"worker": {"report"}}, nil, nil)

	res := v.VerifyMessage("worker-agent", "coordinator-agent", "report")
	if res.Status != StatusVerified {
		t.Fatalf("pair message should verify, got %s", res.Status)
	}

	res = v.VerifyMessage("worker-agent", "stranger", "report")
	if res.Status != StatusNoContract {
		t.Fatalf("no contract with stranger, got %s", res.Status)
	}
}

func TestObligationLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	v := NewVerifier(r, nil)

	c := signedContract(t, r, nil, map[string][]Obligation{
		"worker": {{Trigger: "task_assigned", Action: "report_status", TimeoutMS: 1000}},
	}, nil)

	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	v.nowFn = func() time.Time { return current }

	if !v.TrackObligation(c.ContractID, "worker-agent", "task_assigned") {
		t.Fatal("track failed")
	}
	if v.TrackObligation(c.ContractID, "worker-agent", "no_such_trigger") {
		t.Fatal("tracked unknown trigger")
	}
	if v.TrackObligation("missing", "worker-agent", "task_assigned") {
		t.Fatal("tracked on unknown contract")
	}

	// Within the timeout nothing is pending yet.
	current = current.Add(500 * time.Millisecond)
	if pending := v.CheckPendingObligations(c.ContractID, "worker-agent"); len(pending) != 0 {
		t.Fatalf("nothing should be overdue yet: %+v", pending)
	}

	// Past the timeout the obligation shows up; staleness is only detected
	// on this call, there is no background timer.
	current = current.Add(time.Second)
	pending := v.CheckPendingObligations(c.ContractID, "worker-agent")
	if len(pending) != 1 || pending[0].Obligation.Action != "report_status" {
		t.Fatalf("expected one overdue obligation, got %+v", pending)
	}

	if !v.FulfillObligation(c.ContractID, "worker-agent", "report_status") {
		t.Fatal("fulfill failed")
	}
	if pending := v.CheckPendingObligations(c.ContractID, "worker-agent"); len(pending) != 0 {
		t.Fatalf("fulfilled obligation still pending: %+v", pending)
	}
	if v.FulfillObligation(c.ContractID, "worker-agent", "report_status") {
		t.Fatal("double fulfill should fail")
	}
}

func TestObligationDefaultTimeout(t *testing.T) {
	r := newTestRegistry(t)
	v := NewVerifier(r, nil)

	c := signedContract(t, r, nil, map[string][]Obligation{
		"worker": {{Trigger: "ping", Action: "pong"}},
	}, nil)

	current := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	v.nowFn = func() time.Time { return current }

	v.TrackObligation(c.ContractID, "worker-agent", "ping")

	current = current.Add(29 * time.Second)
	if pending := v.CheckPendingObligations(c.ContractID, "worker-agent"); len(pending) != 0 {
		t.Fatal("default timeout is 30s")
	}
	current = current.Add(2 * time.Second)
	if pending := v.CheckPendingObligations(c.ContractID, "worker-agent"); len(pending) != 1 {
		t.Fatal("obligation should be overdue after 31s")
	}
}
