package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/shared"
)

// ErrRejected marks a purchase that can never be credited. The message is
// acknowledged and parked instead of retried.
var ErrRejected = errors.New("purchase rejected")

type ProcessingServiceImpl struct {
	creditor PurchaseCreditor
	logger   *slog.Logger
}

func NewProcessingService(creditor PurchaseCreditor, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		creditor: creditor,
		logger:   logger,
	}
}

// ProcessPurchase credits the purchased coins once per purchase key.
func (s *ProcessingServiceImpl) ProcessPurchase(ctx context.Context, request *shared.PurchaseRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing coin purchase",
		"purchase_id", request.PurchaseID,
		"account_id", request.AccountID,
		"provider", request.Provider,
	)

	// 1. Validate before touching the store
	if err := request.Validate(); err != nil {
		logger.Error("Coin purchase validation failed", "purchase_id", request.PurchaseID, "error", err)
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	// 2. Credit through the ledger; the purchase key makes redelivery a replay
	result, err := s.creditor.CreditPurchase(ctx, request)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrIdempotencyConflict),
		errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidPurchase),
		errors.Is(err, shared.ErrInvalidAccount):
		logger.Error("Coin purchase cannot be credited", "purchase_id", request.PurchaseID, "error", err)
		return fmt.Errorf("%w: %v", ErrRejected, err)
	default:
		// Indeterminate and store errors are retried; the replay settles them
		logger.Error("Failed to credit coin purchase", "purchase_id", request.PurchaseID, "error", err)
		return fmt.Errorf("failed to credit purchase %s: %w", request.PurchaseID, err)
	}

	if result.Replayed {
		logger.Info("Coin purchase already credited", "purchase_id", request.PurchaseID)
		return nil
	}

	logger.Info("Coin purchase credited",
		"purchase_id", request.PurchaseID,
		"account_id", request.AccountID,
		"coins", request.Coins,
		"balance", result.Wallet.Balance,
	)
	return nil
}
