package notifier

import (
	"context"
	"log/slog"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	goredis "github.com/redis/go-redis/v9"
)

// BalanceNotifier maps accounts to their wallet channel, e.g. wallet:acc-1
type BalanceNotifier struct {
	pubsub *TypedPubSub[ledger.BalanceChangedEvent]
	prefix string
	logger *slog.Logger
}

func NewBalanceNotifier(client goredis.UniversalClient, prefix string, logger *slog.Logger) *BalanceNotifier {
	return &BalanceNotifier{
		pubsub: NewTypedPubSub[ledger.BalanceChangedEvent](client, logger),
		prefix: prefix,
		logger: logger,
	}
}

// Channel returns the channel carrying the account's balance changes
func (n *BalanceNotifier) Channel(accountID string) string {
	return n.prefix + accountID
}

func (n *BalanceNotifier) PublishBalanceChanged(ctx context.Context, event ledger.BalanceChangedEvent) error {
	if err := n.pubsub.Publish(ctx, n.Channel(event.AccountID), event); err != nil {
		n.logger.Error("Failed to notify balance change",
			"account_id", event.AccountID,
			"entry_id", event.EntryID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

// Watch streams the account's balance changes into handler until ctx ends
func (n *BalanceNotifier) Watch(ctx context.Context, accountID string, ready chan<- struct{}, handler func(ledger.BalanceChangedEvent)) error {
	return n.pubsub.Subscribe(ctx, n.Channel(accountID), ready, handler)
}

// Close is a no-op; the Redis client is owned by the caller
func (n *BalanceNotifier) Close() error {
	return nil
}
