// Package contract enforces deontic policy between agents: what a role may
// do (capabilities), must not do (prohibitions), and must do on a trigger
// (obligations).
package contract

import "time"

// AllParties is the synthetic role whose prohibitions bind every party.
const AllParties = "all_parties"

// DefaultObligationTimeoutMS bounds how long a tracked trigger may stay
// outstanding before the obligation counts as pending-overdue.
const DefaultObligationTimeoutMS = 30_000

type Party struct {
	AgentID string `json:"agent_id"`
	Role    string `json:"role"`
}

type Obligation struct {
	Trigger   string         `json:"trigger"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params,omitempty"`
	TimeoutMS int64          `json:"timeout_ms,omitempty"`
}

// Contract is a deontic agreement. It is mutated only by adding signatures;
// everything else is fixed at creation.
type Contract struct {
	ContractID   string                  `json:"contract_id"`
	Version      string                  `json:"version"`
	Created      time.Time               `json:"created"`
	Expires      *time.Time              `json:"expires,omitempty"`
	Parties      []Party                 `json:"parties"`
	Capabilities map[string][]string     `json:"capabilities,omitempty"`
	Obligations  map[string][]Obligation `json:"obligations,omitempty"`
	Prohibitions map[string][]string     `json:"prohibitions,omitempty"`
	Signatures   map[string]string       `json:"signatures,omitempty"`
}

// IsFullySigned reports whether the signature key set equals the party id
// set, independent of signing order.
func (c Contract) IsFullySigned() bool {
	if len(c.Signatures) != len(c.Parties) {
		return false
	}
	for _, p := range c.Parties {
		if _, ok := c.Signatures[p.AgentID]; !ok {
			return false
		}
	}
	return true
}

// IsActive reports whether the contract is fully signed and not expired.
func (c Contract) IsActive(now time.Time) bool {
	if !c.IsFullySigned() {
		return false
	}
	return c.Expires == nil || now.Before(*c.Expires)
}

// RoleOf returns the role the agent holds under this contract.
func (c Contract) RoleOf(agentID string) (string, bool) {
	for _, p := range c.Parties {
		if p.AgentID == agentID {
			return p.Role, true
		}
	}
	return "", false
}

// IsParty reports whether the agent is a listed party.
func (c Contract) IsParty(agentID string) bool {
	_, ok := c.RoleOf(agentID)
	return ok
}

// Grants reports whether the role's capabilities include the action.
func (c Contract) Grants(role, action string) bool {
	for _, a := range c.Capabilities[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Prohibits reports whether the action is prohibited for the role, either
// directly or through the all_parties role.
func (c Contract) Prohibits(role, action string) bool {
	for _, a := range c.Prohibitions[role] {
		if a == action {
			return true
		}
	}
	for _, a := range c.Prohibitions[AllParties] {
		if a == action {
			return true
		}
	}
	return false
}
