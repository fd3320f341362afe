package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/segmentio/kafka-go"
)

// BalanceEventProducer publishes BalanceChangedEvent JSON for every committed entry
type BalanceEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewBalanceEventProducer ensures the balance event topic exists and opens a writer
func NewBalanceEventProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BalanceEventProducer, error) {
	if cfg.BalanceEventTopic == "" {
		return nil, fmt.Errorf("kafka balance event topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.BalanceEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure balance event topic %s exists: %w", cfg.BalanceEventTopic, err)
	}

	// Synchronous so the outbox only marks a message processed once the broker has it
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.BalanceEventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &BalanceEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.BalanceEventTopic,
	}, nil
}

func (p *BalanceEventProducer) PublishBalanceChanged(ctx context.Context, event ledger.BalanceChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal balance changed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AccountID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "entry-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish balance changed event",
			"topic", p.topic,
			"entry_id", event.EntryID.String(),
			"account_id", event.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to publish balance changed event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published balance changed event",
		"topic", p.topic,
		"entry_id", event.EntryID.String(),
		"account_id", event.AccountID,
	)
	return nil
}

func (p *BalanceEventProducer) Close() error {
	p.logger.Info("Closing balance event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close balance event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
