package service

import (
	"context"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/platform/messaging/producers"
)

// EntryLookup finds an entry by its idempotency key
type EntryLookup interface {
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*ledger.Entry, error)
}

// PurchaseServiceImpl implements the PurchaseService interface
type PurchaseServiceImpl struct {
	entries   EntryLookup
	publisher producers.PurchasePublisher
	logger    *slog.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(logger *slog.Logger, entries EntryLookup, publisher producers.PurchasePublisher) PurchaseService {
	return &PurchaseServiceImpl{
		entries:   entries,
		publisher: publisher,
		logger:    logger,
	}
}

// SubmitPurchase short-circuits purchases that are already on the ledger and
// publishes the rest for the ledger worker.
func (s *PurchaseServiceImpl) SubmitPurchase(ctx context.Context, request *shared.PurchaseRequest) (*ledger.Entry, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	existingEntry, err := s.entries.GetByIdempotencyKey(ctx, request.Key())
	if err != nil {
		logger.Error("Failed to check for an existing purchase entry",
			"idempotency_key", request.Key(),
			"error", err,
		)
		return nil, err
	}
	if existingEntry != nil {
		logger.Info("Purchase already credited",
			"purchase_id", request.PurchaseID,
			"entry_id", existingEntry.ID.String(),
		)
		return existingEntry, nil
	}

	if err := s.publisher.PublishPurchase(ctx, request); err != nil {
		logger.Error("Failed to publish coin purchase",
			"purchase_id", request.PurchaseID,
			"account_id", request.AccountID,
			"error", err,
		)
		return nil, err
	}

	logger.Info("Coin purchase published",
		"purchase_id", request.PurchaseID,
		"account_id", request.AccountID,
		"coins", request.Coins,
	)
	return nil, nil
}
