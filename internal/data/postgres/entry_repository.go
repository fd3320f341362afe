package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	entryColumns = `id, account_id, type, amount, balance_after, COALESCE(reference_id, ''), note, ` +
		`COALESCE(idempotency_key, ''), COALESCE(actor_id, ''), created_at`
	idempotencyConstraint = "ledger_entries_idempotency_key_idx"
)

// EntryRepository implements the append-only ledger.Repository for PostgreSQL
type EntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEntryRepository creates a new PostgreSQL ledger entry repository
func NewEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &EntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *EntryRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &EntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.Type,
		&e.Amount,
		&e.BalanceAfter,
		&e.ReferenceID,
		&e.Note,
		&e.IdempotencyKey,
		&e.ActorID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepository) queryEntries(ctx context.Context, op string, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}
	return entries, nil
}

// Append inserts an entry. Entries are never updated afterwards.
func (r *EntryRepository) Append(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, type, amount, balance_after, reference_id, note, idempotency_key, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), $10)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.AccountID,
		e.Type,
		e.Amount,
		e.BalanceAfter,
		e.ReferenceID,
		e.Note,
		e.IdempotencyKey,
		e.ActorID,
		e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, idempotencyConstraint) {
			return ledger.ErrDuplicateEntry{IdempotencyKey: e.IdempotencyKey}
		}
		r.logger.Error("Failed to append ledger entry", "account_id", e.AccountID, "type", string(e.Type), "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry by its id
func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{ID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return e, nil
}

// GetByIdempotencyKey returns nil, nil when no entry carries the key
func (r *EntryRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE idempotency_key = $1`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by idempotency key", "idempotency_key", idempotencyKey, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by idempotency key: %w", err)
	}
	return e, nil
}

// ListByAccount returns one page of entries, newest first
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, q ledger.PageQuery) ([]*ledger.Entry, error) {
	limit := ledger.ClampLimit(q.Limit)

	if q.Before == nil {
		query := `
			SELECT ` + entryColumns + `
			FROM ledger_entries
			WHERE account_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		return r.queryEntries(ctx, "list ledger entries", query, accountID, limit)
	}

	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1 AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	return r.queryEntries(ctx, "list ledger entries", query, accountID, q.Before.CreatedAt, q.Before.ID, limit)
}

// ListByReference returns every entry linked to referenceID, oldest first
func (r *EntryRepository) ListByReference(ctx context.Context, referenceID string) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE reference_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.queryEntries(ctx, "list ledger entries by reference", query, referenceID)
}

// Totals replays the account's entries, checking the running balance chain
// in history order
func (r *EntryRepository) Totals(ctx context.Context, accountID string) (ledger.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0)::BIGINT,
			COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)::BIGINT,
			COUNT(*),
			COUNT(*) FILTER (WHERE balance_after <> running)
		FROM (
			SELECT amount, balance_after,
				SUM(amount) OVER (ORDER BY created_at, id) AS running
			FROM ledger_entries
			WHERE account_id = $1
		) replay
	`

	var t ledger.Totals
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&t.Sum, &t.Credits, &t.Debits, &t.Count, &t.Breaks); err != nil {
		r.logger.Error("Failed to compute ledger totals", "account_id", accountID, "error", err)
		return ledger.Totals{}, fmt.Errorf("failed to compute ledger totals: %w", err)
	}
	return t, nil
}
