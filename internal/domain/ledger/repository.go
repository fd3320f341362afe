package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Totals is the full replay of an account's entries
type Totals struct {
	Sum     int64
	Credits int64
	Debits  int64 // Unsigned
	Count   int64
	// Breaks counts entries, oldest first, whose balanceAfter is not the
	// running sum of the amounts up to and including them
	Breaks int64
}

// Repository is the append-only ledger store
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Entry, error)
	ListByAccount(ctx context.Context, accountID string, query PageQuery) ([]*Entry, error)
	ListByReference(ctx context.Context, referenceID string) ([]*Entry, error)
	Totals(ctx context.Context, accountID string) (Totals, error)
	WithTx(tx pgx.Tx) Repository
}

// HistoryRepository is the capped read projection shown to end users
type HistoryRepository interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, accountID string, limit int) ([]*Entry, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	ID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target ID is empty, consider it a match for any ErrEntryNotFound
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateEntry indicates an idempotency key uniqueness violation
type ErrDuplicateEntry struct {
	IdempotencyKey string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry for idempotency key: " + e.IdempotencyKey
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.IdempotencyKey == "" {
		return true
	}
	return e.IdempotencyKey == t.IdempotencyKey
}
