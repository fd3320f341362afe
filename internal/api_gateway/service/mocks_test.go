package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/coin_ledger/components"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/data/memory"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemoryLedger(t *testing.T) (*coinledger.CoinLedgerService, *memory.TxRunner) {
	t.Helper()
	logger := newTestLogger()
	txRunner := memory.NewTxRunner(memory.NewStore(logger))
	calculator, err := pricing.NewCalculator(50, 5)
	require.NoError(t, err)
	svc := coinledger.NewCoinLedgerService(
		txRunner,
		components.NewWalletManager(logger),
		components.NewOutboxManager(logger),
		calculator,
		coinledger.Settings{DailyBonus: 5, Location: time.UTC, StoreTimeout: time.Second},
		nil,
		logger,
	)
	return svc, txRunner
}

type MockEntryLookup struct {
	mock.Mock
}

func (m *MockEntryLookup) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*ledger.Entry, error) {
	args := m.Called(ctx, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockPurchasePublisher struct {
	mock.Mock
}

func (m *MockPurchasePublisher) PublishPurchase(ctx context.Context, req *shared.PurchaseRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockPurchasePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Record(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) Recent(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}
