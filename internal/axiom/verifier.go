// Package axiom runs pluggable compliance checks against single ledger
// events. The default verifiers are keyword heuristics, not formal proofs;
// their exact pass/fail boundary is part of the observable contract.
package axiom

import (
	"github.com/davidahmann/verity/pkg/types"
)

// Result is one verifier's verdict on one event.
type Result struct {
	Axiom      string         `json:"axiom"`
	Passed     bool           `json:"passed"`
	Reason     string         `json:"reason"`
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

// Verifier checks one policy dimension over one event.
type Verifier interface {
	// Axiom returns the policy dimension this verifier checks.
	Axiom() string
	// AppliesTo filters events; the default verifiers apply to everything.
	AppliesTo(ev types.Event) bool
	// Verify produces the verdict. Panics are caught by the monitor and
	// converted to a failing result with confidence 0.
	Verify(ev types.Event) Result
}
