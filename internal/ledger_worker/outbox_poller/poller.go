package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/shared"
)

// Poller drains pending outbox messages into the entry publisher
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EntryPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EntryPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start drains the outbox once, then on every tick until ctx is canceled.
// A full batch is followed by another pass straight away.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		p.drain(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) drain(ctx context.Context) {
	for ctx.Err() == nil {
		fetched, _, err := p.runBatch(ctx)
		if err != nil {
			p.logger.Error("Outbox batch failed", "error", err)
			return
		}
		if fetched < p.batchSize {
			return
		}
	}
}

// ProcessPending runs one batch and returns how many messages were delivered
func (p *Poller) ProcessPending(ctx context.Context) (int, error) {
	_, delivered, err := p.runBatch(ctx)
	return delivered, err
}

func (p *Poller) runBatch(ctx context.Context) (fetched, delivered int, err error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	for _, msg := range messages {
		err := p.publisher.PublishEntry(ctx, msg)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrUndecodable):
			// parked by the publisher
		default:
			p.recordFailure(ctx, msg, err)
		}
	}
	if len(messages) > 0 {
		p.logger.Debug("Outbox batch done", "fetched", len(messages), "delivered", delivered)
	}
	return len(messages), delivered, nil
}

func (p *Poller) recordFailure(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "entry_id", msg.EntryID.String(), "attempts", msg.Attempts+1)
	logger.Warn("Outbox delivery failed", "error", cause)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to count outbox attempt", "error", err)
		return
	}
	if !msg.FinalAttempt(p.maxRetryAttempts) {
		return
	}
	logger.Error("Outbox message out of retries, parking as FAILED_TO_PUBLISH")
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to park outbox message", "error", err)
	}
}
