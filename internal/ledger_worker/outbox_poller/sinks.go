package outbox_poller

import (
	"context"

	"github.com/dancecoin-ledger/internal/domain/ledger"
)

// BalancePublisher is satisfied by the Kafka balance event producer and the Redis notifier
type BalancePublisher interface {
	PublishBalanceChanged(ctx context.Context, event ledger.BalanceChangedEvent) error
}

// HistorySink keeps the Mongo history projection current
type HistorySink struct {
	repo ledger.HistoryRepository
}

func NewHistorySink(repo ledger.HistoryRepository) *HistorySink {
	return &HistorySink{repo: repo}
}

func (s *HistorySink) Name() string { return "history" }

func (s *HistorySink) Deliver(ctx context.Context, entry *ledger.Entry) error {
	return s.repo.Record(ctx, entry)
}

// BalanceEventSink emits a BalanceChangedEvent for every entry
type BalanceEventSink struct {
	name      string
	publisher BalancePublisher
}

func NewBalanceEventSink(name string, publisher BalancePublisher) *BalanceEventSink {
	return &BalanceEventSink{name: name, publisher: publisher}
}

func (s *BalanceEventSink) Name() string { return s.name }

func (s *BalanceEventSink) Deliver(ctx context.Context, entry *ledger.Entry) error {
	return s.publisher.PublishBalanceChanged(ctx, ledger.NewBalanceChangedEvent(entry))
}
