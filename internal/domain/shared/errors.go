package shared

import (
	"errors"
	"fmt"
)

// Domain outcomes every ledger operation may report
var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrAlreadyClaimedToday    = errors.New("daily bonus already claimed today")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIndeterminate          = errors.New("ledger operation outcome is indeterminate")
	ErrIdempotencyConflict    = errors.New("idempotency key was already used for a different operation")
	ErrInvalidAccount         = errors.New("account id is required")
	ErrInvalidEntryType       = errors.New("entry type is not allowed for this operation")
	ErrNotRefundable          = errors.New("entry cannot be refunded")
	ErrAlreadyRefunded        = errors.New("entry was already refunded")
)

// ErrInvariantViolation reports a failed internal consistency check on an account
type ErrInvariantViolation struct {
	AccountID string
	Reason    string
}

func (e ErrInvariantViolation) Error() string {
	return fmt.Sprintf("ledger invariant violated for account %s: %s", e.AccountID, e.Reason)
}

// Is implements the errors.Is interface for ErrInvariantViolation
func (e ErrInvariantViolation) Is(target error) bool {
	t, ok := target.(ErrInvariantViolation)
	if !ok {
		return false
	}
	// An empty target matches any violation
	if t.AccountID == "" {
		return true
	}
	return e.AccountID == t.AccountID
}
