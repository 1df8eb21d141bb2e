package ledger

import (
	"time"

	"github.com/davidahmann/verity/internal/crypto"
	"github.com/davidahmann/verity/pkg/types"
)

// canonicalBody builds the map that feeds canonical JSON hashing. Hash and
// verification status never enter the body; the signature enters only for
// hashing, not for signing (the signature cannot cover itself).
func canonicalBody(ev types.Event, includeSignature bool) map[string]any {
	body := map[string]any{
		"event_id":      ev.EventID,
		"timestamp":     ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"sequence":      ev.Sequence,
		"previous_hash": ev.PreviousHash,
		"agent": map[string]any{
			"id":         ev.Agent.ID,
			"type":       string(ev.Agent.Type),
			"public_key": ev.Agent.PublicKey,
			"name":       ev.Agent.Name,
		},
		"action": map[string]any{
			"type":        string(ev.Action.Type),
			"description": ev.Action.Description,
			"payload":     ev.Action.Payload,
			"target":      ev.Action.Target,
		},
		"axiom_context": map[string]any{
			"declared_alignment": ev.AxiomContext.DeclaredAlignment,
			"justification":      ev.AxiomContext.Justification,
		},
	}
	if includeSignature {
		body["signature"] = ev.Signature
	}
	return body
}

// SigningBytes returns the canonical form an event signer signs over.
func SigningBytes(ev types.Event) ([]byte, error) {
	return crypto.Canonicalize(canonicalBody(ev, false))
}

// ComputeHash returns the event's chain hash in "sha256:<hex>" form.
func ComputeHash(ev types.Event) (string, error) {
	canonical, err := crypto.Canonicalize(canonicalBody(ev, true))
	if err != nil {
		return "", err
	}
	return crypto.DigestWithPrefix(canonical), nil
}

// VerifyHash recomputes the event hash and compares it to the stored one.
func VerifyHash(ev types.Event) bool {
	hash, err := ComputeHash(ev)
	return err == nil && hash == ev.Hash
}
