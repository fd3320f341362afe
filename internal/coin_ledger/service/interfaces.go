package service

import (
	"context"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
)

// LedgerService is the only writer of wallets and ledger entries.
// Every mutating call runs in a single store transaction.
type LedgerService interface {
	GetWallet(ctx context.Context, accountID string) (*wallet.Wallet, error)
	History(ctx context.Context, accountID string, limit int, cursor string) (*HistoryPage, error)
	Quote(priceEUR string) (pricing.Quote, error)

	CreditDailyBonus(ctx context.Context, accountID string) (*Result, error)
	ChargeCourseUnlock(ctx context.Context, req ChargeRequest) (*Result, error)
	ChargeBooking(ctx context.Context, req ChargeRequest) (*Result, error)
	ChargePlan(ctx context.Context, req ChargeRequest) (*Result, error)
	ChargeReview(ctx context.Context, req ChargeRequest) (*Result, error)
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
	AdminAdjust(ctx context.Context, req AdjustRequest) (*Result, error)
	Award(ctx context.Context, req AwardRequest) (*Result, error)
	CreditPurchase(ctx context.Context, req *shared.PurchaseRequest) (*Result, error)

	CreateKey(ctx context.Context, req CreateKeyRequest) (*redemption.Key, error)
	ListKeys(ctx context.Context, limit, offset int) ([]*redemption.Key, error)
	RedeemKey(ctx context.Context, code, accountID string) (*RedeemResult, error)

	SetCommission(ctx context.Context, req SetCommissionRequest) (*CommissionResult, error)
	SetCommissionActive(ctx context.Context, id uuid.UUID, isActive bool, adminID string) (*CommissionResult, error)
	ListCommissions(ctx context.Context, courseID string) ([]*commission.CourseCommission, error)
	RecordSaleAndPayout(ctx context.Context, req SaleRequest) (*SaleResult, error)

	Recompute(ctx context.Context, accountID string) (*Reconciliation, error)
}

// WalletManager locks wallets and posts entries against them inside a unit of work
type WalletManager interface {
	LockWallets(ctx context.Context, uow persistence.UnitOfWork, accountIDs ...string) (map[string]*wallet.Wallet, error)
	Apply(ctx context.Context, uow persistence.UnitOfWork, w *wallet.Wallet, posting Posting) (*ledger.Entry, error)
}

// OutboxManager queues the committed-entry notification for the poller
type OutboxManager interface {
	Enqueue(ctx context.Context, uow persistence.UnitOfWork, entry *ledger.Entry) error
}
