package wallet

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines wallet persistence operations
type Repository interface {
	// GetOrCreateForUpdate creates the wallet lazily and holds a row lock on it
	// until the surrounding transaction ends
	GetOrCreateForUpdate(ctx context.Context, accountID string) (*Wallet, error)
	GetByAccountID(ctx context.Context, accountID string) (*Wallet, error)

	// Update persists the wallet using optimistic locking on Version
	Update(ctx context.Context, w *Wallet) error
	ListAccountIDs(ctx context.Context, limit, offset int) ([]string, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.AccountID
}

// Is matches any ErrConcurrentModification when the target carries no account
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AccountID == "" || e.AccountID == t.AccountID
}

// ErrWalletNotFound indicates the account never had a balance-affecting event
type ErrWalletNotFound struct {
	AccountID string
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found: " + e.AccountID
}

// Is implements the errors.Is interface for ErrWalletNotFound
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.AccountID == "" {
		return true
	}
	return e.AccountID == t.AccountID
}
