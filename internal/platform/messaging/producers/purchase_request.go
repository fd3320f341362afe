package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// PurchaseRequestProducer writes provider callbacks onto the purchase topic
type PurchaseRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewPurchaseRequestProducer ensures the purchase topic exists and opens a writer
func NewPurchaseRequestProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PurchaseRequestProducer, error) {
	if cfg.PurchaseTopic == "" {
		return nil, fmt.Errorf("kafka purchase topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.PurchaseTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure purchase topic %s exists: %w", cfg.PurchaseTopic, err)
	}

	// Keyed by account so one account's purchases stay on one partition
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PurchaseTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &PurchaseRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PurchaseTopic,
	}, nil
}

// PublishPurchase blocks until the broker acknowledged the request
func (p *PurchaseRequestProducer) PublishPurchase(ctx context.Context, req *shared.PurchaseRequest) error {
	value, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(req.AccountID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "correlation-id", Value: []byte(req.CorrelationID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish purchase request",
			"topic", p.topic,
			"purchase_id", req.PurchaseID,
			"account_id", req.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to publish purchase request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published purchase request",
		"topic", p.topic,
		"purchase_id", req.PurchaseID,
		"account_id", req.AccountID,
	)
	return nil
}

func (p *PurchaseRequestProducer) Close() error {
	p.logger.Info("Closing purchase request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close purchase request writer for topic %s: %w", p.topic, err)
	}
	return nil
}
