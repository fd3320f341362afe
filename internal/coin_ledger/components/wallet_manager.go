package components

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
)

type WalletManagerImpl struct {
	logger *slog.Logger
}

func NewWalletManager(logger *slog.Logger) service.WalletManager {
	return &WalletManagerImpl{
		logger: logger,
	}
}

// LockWallets row-locks each distinct wallet in ascending account id order,
// creating missing ones, so multi-account operations cannot deadlock.
func (m *WalletManagerImpl) LockWallets(ctx context.Context, uow persistence.UnitOfWork, accountIDs ...string) (map[string]*wallet.Wallet, error) {
	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	wallets := make(map[string]*wallet.Wallet, len(ids))
	for _, id := range ids {
		w, err := uow.Wallets().GetOrCreateForUpdate(ctx, id)
		if err != nil {
			m.logger.Error("Failed to lock wallet", "account_id", id, "error", err)
			return nil, fmt.Errorf("failed to lock wallet %s: %w", id, err)
		}
		wallets[id] = w
	}
	return wallets, nil
}

// Apply turns the posting into an entry, moves the wallet and persists both.
// The entry is checked against the balance before it so a bad posting never
// reaches the store.
func (m *WalletManagerImpl) Apply(ctx context.Context, uow persistence.UnitOfWork, w *wallet.Wallet, p service.Posting) (*ledger.Entry, error) {
	if !p.Type.Valid() {
		return nil, shared.ErrInvalidEntryType
	}
	if p.Amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}

	amount := p.Amount
	if !p.Type.IsCredit() {
		if !w.CanDebit(p.Amount) {
			return nil, shared.ErrInsufficientBalance
		}
		amount = -p.Amount
	}

	balanceBefore := w.Balance
	entry := &ledger.Entry{
		ID:             uuid.New(),
		AccountID:      w.AccountID,
		Type:           p.Type,
		Amount:         amount,
		BalanceAfter:   balanceBefore + amount,
		ReferenceID:    p.ReferenceID,
		Note:           p.Note,
		IdempotencyKey: p.IdempotencyKey,
		ActorID:        p.ActorID,
		CreatedAt:      p.At,
	}
	if err := entry.Validate(balanceBefore); err != nil {
		m.logger.Error("Rejected ledger entry",
			"account_id", w.AccountID,
			"type", p.Type,
			"amount", amount,
			"balance_before", balanceBefore,
			"error", err,
		)
		return nil, err
	}

	var err error
	if p.Type.IsCredit() {
		err = w.Credit(p.Amount, p.At)
	} else {
		err = w.Debit(p.Amount, p.At)
	}
	if err != nil {
		return nil, err
	}
	if !w.Consistent() {
		return nil, shared.ErrInvariantViolation{
			AccountID: w.AccountID,
			Reason:    fmt.Sprintf("balance %d is not earned %d minus spent %d", w.Balance, w.TotalEarned, w.TotalSpent),
		}
	}

	if err := uow.Wallets().Update(ctx, w); err != nil {
		m.logger.Error("Failed to update wallet", "account_id", w.AccountID, "error", err)
		return nil, fmt.Errorf("failed to update wallet %s: %w", w.AccountID, err)
	}
	if err := uow.Entries().Append(ctx, entry); err != nil {
		m.logger.Error("Failed to append ledger entry", "account_id", w.AccountID, "entry_id", entry.ID, "error", err)
		return nil, fmt.Errorf("failed to append ledger entry for %s: %w", w.AccountID, err)
	}

	m.logger.Debug("Ledger entry posted",
		"account_id", w.AccountID,
		"entry_id", entry.ID,
		"type", entry.Type,
		"amount", entry.Amount,
		"balance_after", entry.BalanceAfter,
	)
	return entry, nil
}
