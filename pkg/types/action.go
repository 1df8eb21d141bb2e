package types

type ActionType string

const (
	ActionMessage           ActionType = "message"
	ActionDecision          ActionType = "decision"
	ActionStateChange       ActionType = "state_change"
	ActionExternalEffect    ActionType = "external_effect"
	ActionContractCreation  ActionType = "contract_creation"
	ActionContractSignature ActionType = "contract_signature"
	ActionViolationReport   ActionType = "violation_report"
)

type Action struct {
	Type        ActionType     `json:"type"`
	Description string         `json:"description"`
	Payload     map[string]any `json:"payload,omitempty"`
	Target      string         `json:"target,omitempty"`
}

// AxiomContext is a self-declared compliance claim. Verifiers check the
// claim; they never trust it.
type AxiomContext struct {
	DeclaredAlignment []string `json:"declared_alignment,omitempty"`
	Justification     string   `json:"justification,omitempty"`
}

// CapabilityName is the deontic action name contracts are checked against:
// an explicit "capability" payload entry when present, the action type
// otherwise.
func (a Action) CapabilityName() string {
	if s, ok := a.Payload["capability"].(string); ok && s != "" {
		return s
	}
	return string(a.Type)
}

// AlignedWith reports whether the context declares alignment with axiom.
func (c AxiomContext) AlignedWith(axiom string) bool {
	for _, a := range c.DeclaredAlignment {
		if a == axiom {
			return true
		}
	}
	return false
}
