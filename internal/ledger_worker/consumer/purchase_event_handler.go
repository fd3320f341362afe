package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/ledger_worker/service"
	"github.com/dancecoin-ledger/internal/platform/messaging/producers"
)

// Purchase message outcomes
const (
	OutcomeCredited  = "credited"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeRetry     = "retry"
)

// PurchaseMetrics counts consumed purchase callbacks by outcome
type PurchaseMetrics interface {
	PurchaseConsumed(outcome string)
}

// PurchaseEventHandler handles coin purchase callbacks from Kafka
type PurchaseEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	metrics           PurchaseMetrics
	logger            *slog.Logger
}

// NewPurchaseEventHandler creates a new handler; producer and metrics may be nil
func NewPurchaseEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
	metrics PurchaseMetrics,
) *PurchaseEventHandler {
	return &PurchaseEventHandler{
		processingService: processingService,
		producer:          producer,
		metrics:           metrics,
		logger:            logger,
	}
}

// HandleMessage processes one Kafka message. Returning nil commits the offset.
func (h *PurchaseEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.PurchaseRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal coin purchase from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		if h.park(ctx, h.logger, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())) {
			h.count(OutcomeMalformed)
			return nil
		}
		h.count(OutcomeRetry)
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received coin purchase for processing",
		"purchase_id", request.PurchaseID,
		"account_id", request.AccountID,
		"coins", request.Coins,
		"provider", request.Provider,
	)

	err := h.processingService.ProcessPurchase(ctx, &request)
	switch {
	case err == nil:
		h.count(OutcomeCredited)
		logger.Info("Successfully processed coin purchase", "purchase_id", request.PurchaseID)
		return nil
	case errors.Is(err, service.ErrRejected):
		if h.park(ctx, logger, key, value, err.Error()) {
			h.count(OutcomeRejected)
			return nil
		}
		// Without a DLQ the message is dropped rather than retried forever
		if h.producer == nil {
			h.count(OutcomeRejected)
			logger.Warn("Dropping rejected coin purchase", "purchase_id", request.PurchaseID, "error", err)
			return nil
		}
		h.count(OutcomeRetry)
		return fmt.Errorf("processing purchase %s failed: %w", request.PurchaseID, err)
	default:
		h.count(OutcomeRetry)
		logger.Error("Failed to process coin purchase",
			"purchase_id", request.PurchaseID,
			"account_id", request.AccountID,
			"error", err,
		)
		return fmt.Errorf("processing purchase %s failed: %w", request.PurchaseID, err)
	}
}

// park moves an unprocessable message to the DLQ and reports whether it landed there
func (h *PurchaseEventHandler) park(ctx context.Context, logger *slog.Logger, key, value []byte, reason string) bool {
	if h.producer == nil {
		return false
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return false
	}
	logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return true
}

func (h *PurchaseEventHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.PurchaseConsumed(outcome)
	}
}
