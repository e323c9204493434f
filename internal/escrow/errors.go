package escrow

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationFailed is the sentinel matched by all escrow operation errors.
	ErrOperationFailed = errors.New("escrow operation failed")

	// ErrMissingEscrowID indicates a settle call against a policy with no escrow.
	ErrMissingEscrowID = errors.New("escrow id required")
)

// OperationError describes a failed gateway call. It unwraps to both
// ErrOperationFailed and its underlying cause.
type OperationError struct {
	EscrowID string
	Op       string
	Cause    error
}

func (e *OperationError) Error() string {
	if e.EscrowID == "" {
		return fmt.Sprintf("escrow %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("escrow %s failed for %s: %v", e.Op, e.EscrowID, e.Cause)
}

func (e *OperationError) Unwrap() []error {
	return []error{ErrOperationFailed, e.Cause}
}
