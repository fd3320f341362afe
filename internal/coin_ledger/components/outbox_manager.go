package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/platform/persistence"
)

type OutboxManagerImpl struct {
	logger *slog.Logger
}

func NewOutboxManager(logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		logger: logger,
	}
}

// Enqueue writes the outbox message for entry in the same unit of work
func (m *OutboxManagerImpl) Enqueue(ctx context.Context, uow persistence.UnitOfWork, entry *ledger.Entry) error {
	message, err := outbox.NewMessage(entry)
	if err != nil {
		m.logger.Error("Failed to create new outbox message (marshal payload)",
			"entry_id", entry.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for entry %s: %w", entry.ID.String(), err)
	}

	if err = uow.Outbox().Create(ctx, message); err != nil {
		m.logger.Error("Failed to create outbox message",
			"entry_id", entry.ID.String(),
			"account_id", entry.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.ID.String(), err)
	}

	m.logger.Debug("Outbox message created",
		"entry_id", entry.ID.String(),
		"outbox_id", message.ID,
	)
	return nil
}
