// Package anchor defines the narrow contract to the external blockchain or
// Merkle anchoring collaborator. The orchestrator calls exactly these three
// operations and never depends on how anchoring is implemented.
package anchor

import "errors"

var ErrUnknownTx = errors.New("unknown anchor transaction")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

type Anchor interface {
	// SubmitAnchor submits a Merkle root and returns a transaction id.
	SubmitAnchor(root string, metadata map[string]string) (string, error)
	// VerifyAnchor checks that the transaction anchors the expected root.
	VerifyAnchor(txID, expectedRoot string) (bool, error)
	// GetAnchorStatus reports the transaction's confirmation status.
	GetAnchorStatus(txID string) (Status, error)
}
