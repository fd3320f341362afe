package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/shared"
)

// ErrUndecodable marks an outbox payload that will never decode
var ErrUndecodable = errors.New("undecodable outbox payload")

// EntryPublisher delivers one outbox message to every downstream sink
type EntryPublisher interface {
	PublishEntry(ctx context.Context, message *outbox.Message) error
}

// Sink receives committed ledger entries. Deliveries repeat on retry, so
// sinks must tolerate seeing an entry twice.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, entry *ledger.Entry) error
}

// DeliveryMetrics counts deliveries per sink
type DeliveryMetrics interface {
	OutboxDelivery(sink string, err error)
}

// FanOutPublisher implements EntryPublisher over a fixed set of sinks
type FanOutPublisher struct {
	outboxRepo outbox.Repository
	sinks      []Sink
	metrics    DeliveryMetrics
	logger     *slog.Logger
}

// NewFanOutPublisher creates a new publisher; metrics may be nil
func NewFanOutPublisher(
	outboxRepo outbox.Repository,
	sinks []Sink,
	metrics DeliveryMetrics,
	logger *slog.Logger,
) *FanOutPublisher {
	return &FanOutPublisher{
		outboxRepo: outboxRepo,
		sinks:      sinks,
		metrics:    metrics,
		logger:     logger,
	}
}

// PublishEntry delivers the entry to all sinks and marks the message
// processed once every sink accepted it.
func (p *FanOutPublisher) PublishEntry(ctx context.Context, message *outbox.Message) error {
	entry, err := message.Entry()
	if err != nil {
		p.logger.Error("Failed to unmarshal ledger entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUndecodable, message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "entry_id", entry.ID.String(), "account_id", entry.AccountID)
	logger.Debug("Delivering outbox message", "sinks", len(p.sinks))

	var failures []error
	for _, sink := range p.sinks {
		err := sink.Deliver(ctx, entry)
		if p.metrics != nil {
			p.metrics.OutboxDelivery(sink.Name(), err)
		}
		if err != nil {
			logger.Error("Failed to deliver ledger entry", "sink", sink.Name(), "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("failed to deliver entry %s: %w", entry.ID, errors.Join(failures...))
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("entry %s delivered, but failed to mark outbox %d as PROCESSED: %w", entry.ID, message.ID, err)
	}

	logger.Info("Outbox message delivered and marked as PROCESSED")
	return nil
}
