package service

import (
	"context"
	"fmt"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/platform/persistence"
)

// Recompute replays an account's entries, checks each running balance and
// compares the totals with its wallet.
// A mismatch is an integrity fault: it is logged and counted, returned as
// ErrInvariantViolation and never corrected here.
func (s *CoinLedgerService) Recompute(ctx context.Context, accountID string) (*Reconciliation, error) {
	accountID, err := requireAccount(accountID)
	if err != nil {
		return nil, err
	}

	var recon *Reconciliation
	err = s.run(ctx, "recompute", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		// Existence check first so reconciling never creates a wallet
		if _, err := uow.Wallets().GetByAccountID(ctx, accountID); err != nil {
			return false, err
		}
		w, err := uow.Wallets().GetOrCreateForUpdate(ctx, accountID)
		if err != nil {
			return false, err
		}
		totals, err := uow.Entries().Totals(ctx, accountID)
		if err != nil {
			return false, err
		}
		recon = &Reconciliation{
			AccountID:  accountID,
			Wallet:     w,
			Totals:     totals,
			Consistent: matches(w.Balance, w.TotalEarned, w.TotalSpent, totals) && w.Consistent(),
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	if !recon.Consistent {
		if s.metrics != nil {
			s.metrics.IntegrityFault("recompute")
		}
		s.logger.Error("Wallet does not match its ledger",
			"account_id", accountID,
			"wallet_balance", recon.Wallet.Balance,
			"ledger_balance", recon.Totals.Sum,
			"wallet_earned", recon.Wallet.TotalEarned,
			"ledger_credits", recon.Totals.Credits,
			"wallet_spent", recon.Wallet.TotalSpent,
			"ledger_debits", recon.Totals.Debits,
			"chain_breaks", recon.Totals.Breaks,
		)
		reason := fmt.Sprintf("wallet balance %d but ledger sums to %d", recon.Wallet.Balance, recon.Totals.Sum)
		if recon.Totals.Breaks > 0 {
			reason = fmt.Sprintf("%d entries break the running balance", recon.Totals.Breaks)
		}
		return recon, shared.ErrInvariantViolation{AccountID: accountID, Reason: reason}
	}

	s.logger.Debug("Wallet matches its ledger", "account_id", accountID, "balance", recon.Wallet.Balance, "entries", recon.Totals.Count)
	return recon, nil
}

func matches(balance, earned, spent int64, totals ledger.Totals) bool {
	return balance == totals.Sum && earned == totals.Credits && spent == totals.Debits && totals.Breaks == 0
}
