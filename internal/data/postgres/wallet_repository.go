package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `account_id, balance, total_earned, total_spent, last_daily_bonus_at, version, created_at, updated_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanWallet(row rowScanner) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.AccountID,
		&w.Balance,
		&w.TotalEarned,
		&w.TotalSpent,
		&w.LastDailyBonusAt,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreateForUpdate inserts an empty wallet when the account has none yet,
// then locks the row until the transaction ends. Must run inside a transaction.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, accountID string) (*wallet.Wallet, error) {
	insert := `
		INSERT INTO wallets (account_id, balance, total_earned, total_spent, version, created_at, updated_at)
		VALUES ($1, 0, 0, 0, 1, $2, $2)
		ON CONFLICT (account_id) DO NOTHING
	`
	if _, err := r.querier.Exec(ctx, insert, accountID, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to create wallet", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE account_id = $1
		FOR UPDATE
	`
	w, err := scanWallet(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to lock wallet for update", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}

	return w, nil
}

// GetByAccountID reads a wallet without locking it
func (r *WalletRepository) GetByAccountID(ctx context.Context, accountID string) (*wallet.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE account_id = $1
	`
	w, err := scanWallet(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{AccountID: accountID}
		}
		r.logger.Error("Failed to get wallet", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// Update writes the wallet aggregates. The in-memory Version is already bumped by
// the domain, so the stored row must still carry Version-1.
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, total_earned = $2, total_spent = $3, last_daily_bonus_at = $4, version = $5, updated_at = $6
		WHERE account_id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		w.Balance,
		w.TotalEarned,
		w.TotalSpent,
		w.LastDailyBonusAt,
		w.Version,
		w.UpdatedAt,
		w.AccountID,
		w.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "account_id", w.AccountID, "error", err)
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{AccountID: w.AccountID}
	}

	return nil
}

// ListAccountIDs pages through every account that owns a wallet
func (r *WalletRepository) ListAccountIDs(ctx context.Context, limit, offset int) ([]string, error) {
	query := `
		SELECT account_id
		FROM wallets
		ORDER BY account_id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list wallets", "error", err)
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wallet account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over wallets: %w", err)
	}

	return ids, nil
}
