package producers

import (
	"context"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// PurchasePublisher forwards captured coin purchases to the ledger worker
type PurchasePublisher interface {
	PublishPurchase(ctx context.Context, req *shared.PurchaseRequest) error
	Close() error
}

// BalanceEventPublisher emits committed balance changes to downstream consumers
type BalanceEventPublisher interface {
	PublishBalanceChanged(ctx context.Context, event ledger.BalanceChangedEvent) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
