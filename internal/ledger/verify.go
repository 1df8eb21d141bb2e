package ledger

import (
	"fmt"

	"github.com/davidahmann/verity/pkg/types"
)

// ChainValidationResult reports a full chain walk. A broken chain is a
// result value, never an error: finding a problem is the normal job of
// verification.
type ChainValidationResult struct {
	Valid           bool   `json:"valid"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ErrorIndex      *int   `json:"error_index,omitempty"`
	EventsValidated int    `json:"events_validated"`
}

// Verify walks the chain from genesis, checking for each event the link to
// its predecessor, the sequence step, and its own hash. It stops at the
// first failure; every event before the reported index is confirmed valid.
func (l *Ledger) Verify() ChainValidationResult {
	l.mu.Lock()
	events := make([]types.Event, len(l.events))
	copy(events, l.events)
	l.mu.Unlock()

	result := VerifyChain(events)

	l.mu.Lock()
	l.lastVerification = &result
	l.mu.Unlock()
	return result
}

// VerifyChain validates an arbitrary event slice as a chain.
func VerifyChain(events []types.Event) ChainValidationResult {
	for i := range events {
		if msg := checkChainLink(events, i); msg != "" {
			idx := i
			return ChainValidationResult{
				Valid:           false,
				ErrorMessage:    msg,
				ErrorIndex:      &idx,
				EventsValidated: i,
			}
		}
	}
	return ChainValidationResult{Valid: true, EventsValidated: len(events)}
}

// FindTampering is the non-short-circuiting forensic variant: it returns
// every index whose stored hash or chain link is invalid.
func FindTampering(events []types.Event) []int {
	var bad []int
	for i := range events {
		if checkChainLink(events, i) != "" {
			bad = append(bad, i)
		}
	}
	return bad
}

func checkChainLink(events []types.Event, i int) string {
	ev := events[i]

	wantSeq := uint64(i) + 1
	if ev.Sequence != wantSeq {
		return fmt.Sprintf("sequence %d at index %d, want %d", ev.Sequence, i, wantSeq)
	}

	wantPrev := ""
	if i > 0 {
		wantPrev = events[i-1].Hash
	}
	if ev.PreviousHash != wantPrev {
		return fmt.Sprintf("previous_hash mismatch at index %d", i)
	}

	if !VerifyHash(ev) {
		return fmt.Sprintf("hash does not recompute at index %d", i)
	}
	return ""
}

// VerifySignatures sweeps the chain for signature completeness: it returns
// the indices of events whose signature is missing or fails verification
// under the given signer.
func (l *Ledger) VerifySignatures(verify func(data []byte, sig string) bool) []int {
	l.mu.Lock()
	events := make([]types.Event, len(l.events))
	copy(events, l.events)
	l.mu.Unlock()

	var bad []int
	for i, ev := range events {
		if ev.Signature == "" {
			bad = append(bad, i)
			continue
		}
		data, err := SigningBytes(ev)
		if err != nil || !verify(data, ev.Signature) {
			bad = append(bad, i)
		}
	}
	return bad
}
