package service

import (
	"context"
	"log/slog"

	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/ledger"
)

// ActivityServiceImpl reads the Mongo history projection and falls back to
// the ledger when the projection is unavailable.
type ActivityServiceImpl struct {
	history ledger.HistoryRepository
	ledger  coinledger.LedgerService
	logger  *slog.Logger
}

// NewActivityService creates a new activity service; history may be nil
func NewActivityService(logger *slog.Logger, history ledger.HistoryRepository, ledgerService coinledger.LedgerService) ActivityService {
	return &ActivityServiceImpl{
		history: history,
		ledger:  ledgerService,
		logger:  logger,
	}
}

func (s *ActivityServiceImpl) Recent(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	limit = ledger.ClampLimit(limit)

	if s.history != nil {
		entries, err := s.history.Recent(ctx, accountID, limit)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("History projection unavailable, reading the ledger", "account_id", accountID, "error", err)
	}

	page, err := s.ledger.History(ctx, accountID, limit, "")
	if err != nil {
		return nil, err
	}
	return page.Entries, nil
}
