package service

import (
	"context"
	"io"
	"log/slog"

	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessPurchase(ctx context.Context, request *shared.PurchaseRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

// MockPurchaseCreditor mocks the PurchaseCreditor interface
type MockPurchaseCreditor struct {
	mock.Mock
}

func (m *MockPurchaseCreditor) CreditPurchase(ctx context.Context, request *shared.PurchaseRequest) (*coinledger.Result, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coinledger.Result), args.Error(1)
}

func validPurchase() *shared.PurchaseRequest {
	return &shared.PurchaseRequest{
		PurchaseID:    "txn-1000",
		AccountID:     "alice",
		Coins:         100,
		PriceEUR:      "49.99",
		Provider:      shared.PaymentProviderStoreKit,
		CorrelationID: "corr-1",
	}
}
