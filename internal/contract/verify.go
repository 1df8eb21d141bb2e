package contract

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type VerifyStatus string

const (
	StatusNoContract VerifyStatus = "no_contract"
	StatusVerified   VerifyStatus = "verified"
	StatusViolation  VerifyStatus = "violation"
)

type ViolationType string

const (
	ViolationCapability  ViolationType = "capability"
	ViolationProhibition ViolationType = "prohibition"
	ViolationObligation  ViolationType = "obligation"
	ViolationAxiom       ViolationType = "axiom"
)

type Violation struct {
	Type       ViolationType `json:"type"`
	ContractID string        `json:"contract_id"`
	Role       string        `json:"role"`
	Action     string        `json:"action"`
	Detail     string        `json:"detail"`
}

type Result struct {
	Status     VerifyStatus `json:"status"`
	Violations []Violation  `json:"violations,omitempty"`
}

// PendingObligation is an obligation whose tracked trigger has been
// outstanding longer than its timeout.
type PendingObligation struct {
	ContractID  string     `json:"contract_id"`
	AgentID     string     `json:"agent_id"`
	Obligation  Obligation `json:"obligation"`
	TriggeredAt time.Time  `json:"triggered_at"`
}

type pendingKey struct {
	contractID string
	agentID    string
	trigger    string
}

// Verifier checks actions and messages against the registry's contracts and
// tracks obligations. Staleness is evaluated lazily on read; there is no
// background timer.
type Verifier struct {
	registry *Registry

	mu      sync.Mutex
	pending map[pendingKey]time.Time

	logger *slog.Logger
	nowFn  func() time.Time
}

func NewVerifier(registry *Registry, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		registry: registry,
		pending:  make(map[pendingKey]time.Time),
		logger:   logger,
		nowFn:    time.Now,
	}
}

// VerifyAction checks an agent's action against every active contract the
// agent is party to. The action is verified when some contract grants the
// role's capability without prohibiting it; otherwise every checked
// contract's failure is collected.
func (v *Verifier) VerifyAction(agentID, action string) Result {
	contracts := v.registry.FindContracts(agentID, "", true)
	return v.verifyAgainst(contracts, agentID, action)
}

// VerifyMessage is VerifyAction scoped to contracts between exactly the
// sender/receiver pair.
func (v *Verifier) VerifyMessage(sender, receiver, action string) Result {
	contracts := v.registry.FindContracts(sender, receiver, true)
	return v.verifyAgainst(contracts, sender, action)
}

func (v *Verifier) verifyAgainst(contracts []Contract, agentID, action string) Result {
	if len(contracts) == 0 {
		return Result{Status: StatusNoContract}
	}

	violations := []Violation{}
	for _, c := range contracts {
		role, _ := c.RoleOf(agentID)
		if c.Prohibits(role, action) {
			violations = append(violations, Violation{
				Type:       ViolationProhibition,
				ContractID: c.ContractID,
				Role:       role,
				Action:     action,
				Detail:     fmt.Sprintf("action %q prohibited for role %q", action, role),
			})
			continue
		}
		if c.Grants(role, action) {
			return Result{Status: StatusVerified}
		}
		violations = append(violations, Violation{
			Type:       ViolationCapability,
			ContractID: c.ContractID,
			Role:       role,
			Action:     action,
			Detail:     fmt.Sprintf("no capability %q for role %q", action, role),
		})
	}
	return Result{Status: StatusViolation, Violations: violations}
}

// TrackObligation records that an obligation trigger fired for the agent.
// Returns false with a logged warning when no matching obligation exists.
func (v *Verifier) TrackObligation(contractID, agentID, trigger string) bool {
	c, ok := v.registry.Get(contractID)
	if !ok {
		v.logger.Warn("track obligation on unknown contract", "contract_id", contractID)
		return false
	}
	role, ok := c.RoleOf(agentID)
	if !ok {
		v.logger.Warn("track obligation for non-party", "contract_id", contractID, "agent_id", agentID)
		return false
	}
	if _, ok := findObligation(c, role, trigger); !ok {
		v.logger.Warn("no obligation for trigger", "contract_id", contractID, "trigger", trigger)
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending[pendingKey{contractID, agentID, trigger}] = v.nowFn()
	return true
}

// FulfillObligation clears the tracked trigger whose obligation declares the
// given action.
func (v *Verifier) FulfillObligation(contractID, agentID, action string) bool {
	c, ok := v.registry.Get(contractID)
	if !ok {
		v.logger.Warn("fulfill obligation on unknown contract", "contract_id", contractID)
		return false
	}
	role, ok := c.RoleOf(agentID)
	if !ok {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ob := range c.Obligations[role] {
		if ob.Action != action {
			continue
		}
		key := pendingKey{contractID, agentID, ob.Trigger}
		if _, tracked := v.pending[key]; tracked {
			delete(v.pending, key)
			return true
		}
	}
	return false
}

// CheckPendingObligations returns the agent's obligations whose tracked
// trigger has been outstanding past the obligation's timeout.
func (v *Verifier) CheckPendingObligations(contractID, agentID string) []PendingObligation {
	c, ok := v.registry.Get(contractID)
	if !ok {
		return nil
	}
	role, ok := c.RoleOf(agentID)
	if !ok {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFn()
	out := []PendingObligation{}
	for _, ob := range c.Obligations[role] {
		key := pendingKey{contractID, agentID, ob.Trigger}
		triggeredAt, tracked := v.pending[key]
		if !tracked {
			continue
		}
		timeout := ob.TimeoutMS
		if timeout <= 0 {
			timeout = DefaultObligationTimeoutMS
		}
		if now.Sub(triggeredAt) > time.Duration(timeout)*time.Millisecond {
			out = append(out, PendingObligation{
				ContractID:  contractID,
				AgentID:     agentID,
				Obligation:  ob,
				TriggeredAt: triggeredAt,
			})
		}
	}
	return out
}

func findObligation(c Contract, role, trigger string) (Obligation, bool) {
	for _, ob := range c.Obligations[role] {
		if ob.Trigger == trigger {
			return ob, true
		}
	}
	return Obligation{}, false
}
