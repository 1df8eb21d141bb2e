package types

import "time"

type EscalationLevel string

const (
	EscalationInfo      EscalationLevel = "info"
	EscalationWarning   EscalationLevel = "warning"
	EscalationViolation EscalationLevel = "violation"
	EscalationCritical  EscalationLevel = "critical"
	EscalationEmergency EscalationLevel = "emergency"
)

type EscalationStatus string

const (
	EscalationOpen          EscalationStatus = "open"
	EscalationAcknowledged  EscalationStatus = "acknowledged"
	EscalationInvestigating EscalationStatus = "investigating"
	EscalationResolved      EscalationStatus = "resolved"
	EscalationEscalated     EscalationStatus = "escalated"
	EscalationDismissed     EscalationStatus = "dismissed"
)

type Escalation struct {
	ID        string           `json:"id"`
	Level     EscalationLevel  `json:"level"`
	Source    string           `json:"source"`
	Subject   string           `json:"subject"`
	Reason    string           `json:"reason"`
	Status    EscalationStatus `json:"status"`
	Assignee  string           `json:"assignee,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
