package types

type AgentType string

const (
	AgentGuardian    AgentType = "guardian"
	AgentWorker      AgentType = "worker"
	AgentCoordinator AgentType = "coordinator"
	AgentSupervisor  AgentType = "supervisor"
	AgentSpecialist  AgentType = "specialist"
)

// Agent identity is immutable once created; ID is the join key across all
// subsystems (ledger, contracts, reputation, trust graph).
type Agent struct {
	ID        string    `json:"id"`
	Type      AgentType `json:"type"`
	PublicKey string    `json:"public_key"`
	Name      string    `json:"name,omitempty"`
}

// Privileged reports whether the agent type may bypass the operational
// subset of axiom checks when a justification is declared.
func (a Agent) Privileged() bool {
	return a.Type == AgentCoordinator || a.Type == AgentGuardian
}
