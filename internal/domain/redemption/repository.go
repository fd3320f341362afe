package redemption

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository persists redemption keys. Keys are never deleted.
type Repository interface {
	// Create returns an Error of KindDuplicateCode on code collision
	Create(ctx context.Context, key *Key) error
	GetByCode(ctx context.Context, code string) (*Key, error)

	// GetByCodeForUpdate locks the key row for the surrounding transaction
	GetByCodeForUpdate(ctx context.Context, code string) (*Key, error)

	// IncrementUses consumes one use, returning an Error of KindExhausted when none is left
	IncrementUses(ctx context.Context, key *Key) error
	List(ctx context.Context, limit, offset int) ([]*Key, error)
	WithTx(tx pgx.Tx) Repository
}
