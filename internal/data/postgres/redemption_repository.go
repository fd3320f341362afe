package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const keyColumns = `id, code, coin_amount, max_uses, current_uses, expires_at, created_by, created_at`

// RedemptionKeyRepository implements redemption.Repository for PostgreSQL
type RedemptionKeyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRedemptionKeyRepository creates a new PostgreSQL redemption key repository
func NewRedemptionKeyRepository(logger *slog.Logger, db *persistence.PostgresDB) redemption.Repository {
	return &RedemptionKeyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *RedemptionKeyRepository) WithTx(tx pgx.Tx) redemption.Repository {
	return &RedemptionKeyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanKey(row rowScanner) (*redemption.Key, error) {
	var k redemption.Key
	err := row.Scan(
		&k.ID,
		&k.Code,
		&k.CoinAmount,
		&k.MaxUses,
		&k.CurrentUses,
		&k.ExpiresAt,
		&k.CreatedBy,
		&k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// Create stores a new key. The code column is unique.
func (r *RedemptionKeyRepository) Create(ctx context.Context, k *redemption.Key) error {
	query := `
		INSERT INTO redemption_keys (id, code, coin_amount, max_uses, current_uses, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		k.ID,
		k.Code,
		k.CoinAmount,
		k.MaxUses,
		k.CurrentUses,
		k.ExpiresAt,
		k.CreatedBy,
		k.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return &redemption.Error{Kind: redemption.KindDuplicateCode, Code: k.Code}
		}
		r.logger.Error("Failed to create redemption key", "code", k.Code, "error", err)
		return fmt.Errorf("failed to create redemption key: %w", err)
	}

	return nil
}

func (r *RedemptionKeyRepository) getByCode(ctx context.Context, code string, lock bool) (*redemption.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM redemption_keys WHERE code = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	k, err := scanKey(r.querier.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &redemption.Error{Kind: redemption.KindNotFound, Code: code}
		}
		r.logger.Error("Failed to get redemption key", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get redemption key: %w", err)
	}
	return k, nil
}

// GetByCode looks up a key by its normalized code
func (r *RedemptionKeyRepository) GetByCode(ctx context.Context, code string) (*redemption.Key, error) {
	return r.getByCode(ctx, code, false)
}

// GetByCodeForUpdate looks up and locks a key. Must run inside a transaction.
func (r *RedemptionKeyRepository) GetByCodeForUpdate(ctx context.Context, code string) (*redemption.Key, error) {
	return r.getByCode(ctx, code, true)
}

// IncrementUses consumes one use. The guard in the WHERE clause keeps the
// counter below max_uses even without the row lock.
func (r *RedemptionKeyRepository) IncrementUses(ctx context.Context, k *redemption.Key) error {
	query := `
		UPDATE redemption_keys
		SET current_uses = current_uses + 1
		WHERE id = $1 AND current_uses < max_uses
		RETURNING current_uses
	`

	var uses int
	err := r.querier.QueryRow(ctx, query, k.ID).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &redemption.Error{Kind: redemption.KindExhausted, Code: k.Code}
		}
		r.logger.Error("Failed to increment redemption key uses", "code", k.Code, "error", err)
		return fmt.Errorf("failed to increment redemption key uses: %w", err)
	}

	k.CurrentUses = uses
	return nil
}

// List returns keys newest first
func (r *RedemptionKeyRepository) List(ctx context.Context, limit, offset int) ([]*redemption.Key, error) {
	query := `
		SELECT ` + keyColumns + `
		FROM redemption_keys
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list redemption keys", "error", err)
		return nil, fmt.Errorf("failed to list redemption keys: %w", err)
	}
	defer rows.Close()

	var keys []*redemption.Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over redemption keys: %w", err)
	}
	return keys, nil
}
