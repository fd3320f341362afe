package service

import (
	"context"

	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
)

// ProcessingService defines the interface for crediting captured coin purchases.
type ProcessingService interface {
	ProcessPurchase(ctx context.Context, request *shared.PurchaseRequest) error
}

// PurchaseCreditor is the part of the coin ledger the worker writes through
type PurchaseCreditor interface {
	CreditPurchase(ctx context.Context, request *shared.PurchaseRequest) (*coinledger.Result, error)
}
