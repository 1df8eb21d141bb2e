package anchor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type submission struct {
	root        string
	metadata    map[string]string
	status      Status
	submittedAt time.Time
}

// MemoryAnchor is the in-process reference implementation: submissions sit
// pending until confirmed, like an outbox. Used in tests and local runs.
type MemoryAnchor struct {
	mu          sync.Mutex
	submissions map[string]*submission
	autoConfirm bool
}

func NewMemoryAnchor(autoConfirm bool) *MemoryAnchor {
	return &MemoryAnchor{
		submissions: make(map[string]*submission),
		autoConfirm: autoConfirm,
	}
}

func (a *MemoryAnchor) SubmitAnchor(root string, metadata map[string]string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	txID := uuid.NewString()
	status := StatusPending
	if a.autoConfirm {
		status = StatusConfirmed
	}
	a.submissions[txID] = &submission{
		root:        root,
		metadata:    metadata,
		status:      status,
		submittedAt: time.Now().UTC(),
	}
	return txID, nil
}

func (a *MemoryAnchor) VerifyAnchor(txID, expectedRoot string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.submissions[txID]
	if !ok {
		return false, ErrUnknownTx
	}
	return sub.status == StatusConfirmed && sub.root == expectedRoot, nil
}

func (a *MemoryAnchor) GetAnchorStatus(txID string) (Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.submissions[txID]
	if !ok {
		return "", ErrUnknownTx
	}
	return sub.status, nil
}

// Confirm flips a pending submission to confirmed.
func (a *MemoryAnchor) Confirm(txID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.submissions[txID]
	if !ok {
		return false
	}
	sub.status = StatusConfirmed
	return true
}

// Fail marks a submission failed.
func (a *MemoryAnchor) Fail(txID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	sub, ok := a.submissions[txID]
	if !ok {
		return false
	}
	sub.status = StatusFailed
	return true
}
