package types

import "time"

type VerificationStatus string

const (
	StatusPending   VerificationStatus = "pending"
	StatusVerified  VerificationStatus = "verified"
	StatusViolation VerificationStatus = "violation"
	StatusEscalated VerificationStatus = "escalated"
)

// Event is one immutable entry in the hash chain. Hash covers the canonical
// form of every field except Hash and VerificationStatus, so the status may
// be updated post hoc as metadata without breaking the chain.
type Event struct {
	EventID            string             `json:"event_id"`
	Timestamp          time.Time          `json:"timestamp"`
	Sequence           uint64             `json:"sequence"`
	PreviousHash       string             `json:"previous_hash"`
	Agent              Agent              `json:"agent"`
	Action             Action             `json:"action"`
	AxiomContext       AxiomContext       `json:"axiom_context"`
	Signature          string             `json:"signature,omitempty"`
	Hash               string             `json:"hash"`
	VerificationStatus VerificationStatus `json:"verification_status,omitempty"`
}
