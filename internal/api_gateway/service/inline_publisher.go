package service

import (
	"context"
	"log/slog"

	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
)

// InlinePurchasePublisher credits purchases directly instead of through Kafka.
// It backs the single-process memory store mode.
type InlinePurchasePublisher struct {
	ledger coinledger.LedgerService
	logger *slog.Logger
}

func NewInlinePurchasePublisher(ledger coinledger.LedgerService, logger *slog.Logger) *InlinePurchasePublisher {
	return &InlinePurchasePublisher{ledger: ledger, logger: logger}
}

func (p *InlinePurchasePublisher) PublishPurchase(ctx context.Context, req *shared.PurchaseRequest) error {
	_, err := p.ledger.CreditPurchase(ctx, req)
	return err
}

func (p *InlinePurchasePublisher) Close() error {
	return nil
}
