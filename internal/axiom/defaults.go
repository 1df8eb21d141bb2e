package axiom

import (
	"fmt"
	"strings"

	"github.com/davidahmann/verity/pkg/types"
)

// The six default axioms. IDs are stable: contract and escalation logic key
// off them.
const (
	AxiomResourceEfficiency = "resource_efficiency"
	AxiomNonManipulation    = "non_manipulation"
	AxiomHonesty            = "honesty"
	AxiomSimplicity         = "simplicity"
	AxiomGuardian           = "guardian"
	AxiomMemoryConsent      = "memory_consent"
)

// Keyword lists are frozen: changing them moves the pass/fail boundary that
// downstream contract and reputation behavior depends on.
var (
	wasteTerms = []string{
		"waste resources", "wasteful", "redundant computation",
		"unnecessary loop", "burn cycles", "spam requests",
	}
	manipulationTerms = []string{
		"manipulate", "coerce", "pressure them", "exploit bias",
		"dark pattern", "gaslight",
	}
	deceptionTerms = []string{
		"deceive", "mislead", "lie to", "false claim", "fabricate",
		"cover up",
	}
	complexityTerms = []string{
		"overcomplicate", "convoluted", "needless abstraction",
		"over-engineer", "byzantine",
	}
	harmTerms = []string{
		"harm", "destroy", "attack", "sabotage", "disable safety",
	}
	escalationMarkers = []string{
		"escalated", "guardian approved", "emergency override",
	}
	memoryMutationTerms = []string{
		"write memory", "delete memory", "modify memory", "erase memory",
		"memory layer",
	}
	consentMarkers = []string{
		"with consent", "consent granted", "user consented",
	}
)

// Defaults returns the closed set of six default verifiers.
func Defaults() []Verifier {
	return []Verifier{
		&keywordVerifier{axiom: AxiomResourceEfficiency, terms: wasteTerms, bypassable: true},
		&keywordVerifier{axiom: AxiomNonManipulation, terms: manipulationTerms, bypassable: true},
		&keywordVerifier{axiom: AxiomHonesty, terms: deceptionTerms},
		&keywordVerifier{axiom: AxiomSimplicity, terms: complexityTerms, bypassable: true},
		&harmVerifier{},
		&memoryConsentVerifier{},
	}
}

// keywordVerifier fails when any indicator term appears in the event text.
// Bypassable verifiers pass for privileged agent types (coordinator,
// guardian) that declare a non-empty justification.
type keywordVerifier struct {
	axiom      string
	terms      []string
	bypassable bool
}

func (v *keywordVerifier) Axiom() string                { return v.axiom }
func (v *keywordVerifier) AppliesTo(_ types.Event) bool { return true }

func (v *keywordVerifier) Verify(ev types.Event) Result {
	if v.bypassable && privilegedBypass(ev) {
		return Result{
			Axiom:      v.axiom,
			Passed:     true,
			Reason:     "privileged agent with declared justification",
			Confidence: 0.6,
			Details:    map[string]any{"bypass": true},
		}
	}
	text := eventText(ev)
	for _, term := range v.terms {
		if strings.Contains(text, term) {
			return Result{
				Axiom:      v.axiom,
				Passed:     false,
				Reason:     fmt.Sprintf("indicator term %q present", term),
				Confidence: 0.8,
				Details:    map[string]any{"term": term},
			}
		}
	}
	return Result{Axiom: v.axiom, Passed: true, Reason: "no indicator terms", Confidence: 0.9}
}

// harmVerifier fails on harm phrasing that is not accompanied by an
// escalation marker. Never bypassable.
type harmVerifier struct{}

func (v *harmVerifier) Axiom() string                { return AxiomGuardian }
func (v *harmVerifier) AppliesTo(_ types.Event) bool { return true }

func (v *harmVerifier) Verify(ev types.Event) Result {
	text := eventText(ev)
	for _, term := range harmTerms {
		if !strings.Contains(text, term) {
			continue
		}
		for _, marker := range escalationMarkers {
			if strings.Contains(text, marker) {
				return Result{
					Axiom:      AxiomGuardian,
					Passed:     true,
					Reason:     fmt.Sprintf("harm term %q covered by escalation marker %q", term, marker),
					Confidence: 0.7,
					Details:    map[string]any{"term": term, "marker": marker},
				}
			}
		}
		return Result{
			Axiom:      AxiomGuardian,
			Passed:     false,
			Reason:     fmt.Sprintf("harm term %q without escalation marker", term),
			Confidence: 0.8,
			Details:    map[string]any{"term": term},
		}
	}
	return Result{Axiom: AxiomGuardian, Passed: true, Reason: "no harm terms", Confidence: 0.9}
}

// memoryConsentVerifier fails on memory-layer mutation language without a
// consent marker or an explicit consent payload flag. Never bypassable.
type memoryConsentVerifier struct{}

func (v *memoryConsentVerifier) Axiom() string                { return AxiomMemoryConsent }
func (v *memoryConsentVerifier) AppliesTo(_ types.Event) bool { return true }

func (v *memoryConsentVerifier) Verify(ev types.Event) Result {
	text := eventText(ev)
	for _, term := range memoryMutationTerms {
		if !strings.Contains(text, term) {
			continue
		}
		if consent, ok := ev.Action.Payload["consent"].(bool); ok && consent {
			return Result{
				Axiom:      AxiomMemoryConsent,
				Passed:     true,
				Reason:     "memory mutation with consent flag",
				Confidence: 0.8,
				Details:    map[string]any{"term": term},
			}
		}
		for _, marker := range consentMarkers {
			if strings.Contains(text, marker) {
				return Result{
					Axiom:      AxiomMemoryConsent,
					Passed:     true,
					Reason:     fmt.Sprintf("memory mutation covered by %q", marker),
					Confidence: 0.7,
					Details:    map[string]any{"term": term, "marker": marker},
				}
			}
		}
		return Result{
			Axiom:      AxiomMemoryConsent,
			Passed:     false,
			Reason:     fmt.Sprintf("memory mutation %q without consent", term),
			Confidence: 0.8,
			Details:    map[string]any{"term": term},
		}
	}
	return Result{Axiom: AxiomMemoryConsent, Passed: true, Reason: "no memory mutation", Confidence: 0.9}
}

func privilegedBypass(ev types.Event) bool {
	return ev.Agent.Privileged() && strings.TrimSpace(ev.AxiomContext.Justification) != ""
}

// eventText is the lowercased search space for indicator terms: description,
// justification, and every string payload value.
func eventText(ev types.Event) string {
	var sb strings.Builder
	sb.WriteString(ev.Action.Description)
	sb.WriteByte(' ')
	sb.WriteString(ev.AxiomContext.Justification)
	for _, v := range ev.Action.Payload {
		if s, ok := v.(string); ok {
			sb.WriteByte(' ')
			sb.WriteString(s)
		}
	}
	return strings.ToLower(sb.String())
}
