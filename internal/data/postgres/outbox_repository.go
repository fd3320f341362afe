package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const outboxColumns = `id, entry_id, account_id, payload, status, attempts, created_at, last_attempt_at`

// OutboxRepository stores ledger_outbox rows. Writes happen inside the entry's
// transaction through WithTx; the poller reads and updates through the pool.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{querier: tx, logger: r.logger}
}

func scanMessage(row rowScanner) (*outbox.Message, error) {
	var m outbox.Message
	if err := row.Scan(&m.ID, &m.EntryID, &m.AccountID, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	err := r.querier.QueryRow(ctx,
		`INSERT INTO ledger_outbox (entry_id, account_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		message.EntryID, message.AccountID, message.Payload, message.Status, message.Attempts, message.CreatedAt,
	).Scan(&message.ID)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, ""):
		return outbox.ErrDuplicateMessage{EntryID: message.EntryID}
	default:
		r.logger.Error("Failed to create outbox message", "entry_id", message.EntryID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
}

// GetPending returns up to limit pending messages, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx,
		`SELECT `+outboxColumns+` FROM ledger_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`,
		shared.OutboxStatusPending, limit,
	)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*outbox.Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.touch(ctx, id, "update status",
		`UPDATE ledger_outbox SET status = $2, last_attempt_at = now() WHERE id = $1`, status)
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.touch(ctx, id, "increment attempts",
		`UPDATE ledger_outbox SET attempts = attempts + 1, last_attempt_at = now() WHERE id = $1`)
}

// touch runs a single-row update keyed by message id
func (r *OutboxRepository) touch(ctx context.Context, id int64, action, query string, args ...interface{}) error {
	tag, err := r.querier.Exec(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		r.logger.Error("Failed to "+action+" of outbox message", "id", id, "error", err)
		return fmt.Errorf("failed to %s of outbox message %d: %w", action, id, err)
	}
	if tag.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	m, err := scanMessage(r.querier.QueryRow(ctx,
		`SELECT `+outboxColumns+` FROM ledger_outbox WHERE entry_id = $1`, entryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, outbox.ErrMessageNotFound{}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox message for entry %s: %w", entryID, err)
	}
	return m, nil
}
