package postgres

import (
	"context"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type unitOfWork struct {
	wallets     wallet.Repository
	entries     ledger.Repository
	keys        redemption.Repository
	commissions commission.Repository
	outbox      outbox.Repository
}

func (u *unitOfWork) Wallets() wallet.Repository         { return u.wallets }
func (u *unitOfWork) Entries() ledger.Repository         { return u.entries }
func (u *unitOfWork) Keys() redemption.Repository        { return u.keys }
func (u *unitOfWork) Commissions() commission.Repository { return u.commissions }
func (u *unitOfWork) Outbox() outbox.Repository          { return u.outbox }

func (u *unitOfWork) withTx(tx pgx.Tx) *unitOfWork {
	return &unitOfWork{
		wallets:     u.wallets.WithTx(tx),
		entries:     u.entries.WithTx(tx),
		keys:        u.keys.WithTx(tx),
		commissions: u.commissions.WithTx(tx),
		outbox:      u.outbox.WithTx(tx),
	}
}

// TxRunner implements persistence.TxRunner on a PostgreSQL pool
type TxRunner struct {
	db     persistence.TxBeginner
	reader *unitOfWork
	logger *slog.Logger
}

// NewTxRunner wires every ledger repository onto the pool
func NewTxRunner(logger *slog.Logger, db *persistence.PostgresDB) *TxRunner {
	return &TxRunner{
		db: db.Pool(),
		reader: &unitOfWork{
			wallets:     NewWalletRepository(logger, db),
			entries:     NewEntryRepository(logger, db),
			keys:        NewRedemptionKeyRepository(logger, db),
			commissions: NewCommissionRepository(logger, db),
			outbox:      NewOutboxRepository(logger, db),
		},
		logger: logger,
	}
}

// RunInTx runs fn in one database transaction
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, uow persistence.UnitOfWork) error) error {
	return persistence.ExecuteTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, r.reader.withTx(tx))
	})
}

// Reader returns the pool-bound repositories
func (r *TxRunner) Reader() persistence.UnitOfWork {
	return r.reader
}
