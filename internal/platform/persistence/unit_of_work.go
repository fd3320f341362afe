package persistence

import (
	"context"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/wallet"
)

// UnitOfWork exposes the ledger repositories bound to one transaction
type UnitOfWork interface {
	Wallets() wallet.Repository
	Entries() ledger.Repository
	Keys() redemption.Repository
	Commissions() commission.Repository
	Outbox() outbox.Repository
}

// TxRunner executes ledger work atomically. Returning an error from fn rolls
// everything back; a commit that is not confirmed is reported with ErrCommitFailed.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error

	// Reader returns repositories outside any transaction for read-only use
	Reader() UnitOfWork
}
