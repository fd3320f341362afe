package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
)

// SetCommission creates or updates the trainer's share of a course. Active
// shares above 100% in total are saved and reported as a warning.
func (s *CoinLedgerService) SetCommission(ctx context.Context, req SetCommissionRequest) (*CommissionResult, error) {
	c, err := commission.New(req.CourseID, req.TrainerID, req.Percent, req.AdminID, req.Notes, s.now())
	if err != nil {
		return nil, err
	}

	var result *CommissionResult
	err = s.run(ctx, "set_commission", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		saved, err := uow.Commissions().Upsert(ctx, c)
		if err != nil {
			return false, err
		}
		warning, err := allocationWarning(ctx, uow, saved.CourseID)
		if err != nil {
			return false, err
		}
		result = &CommissionResult{Commission: saved, Warning: warning}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.logCommission("Commission saved", result)
	return result, nil
}

func (s *CoinLedgerService) SetCommissionActive(ctx context.Context, id uuid.UUID, isActive bool, adminID string) (*CommissionResult, error) {
	var result *CommissionResult
	err := s.run(ctx, "set_commission_active", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		saved, err := uow.Commissions().SetActive(ctx, id, isActive, adminID)
		if err != nil {
			return false, err
		}
		warning, err := allocationWarning(ctx, uow, saved.CourseID)
		if err != nil {
			return false, err
		}
		result = &CommissionResult{Commission: saved, Warning: warning}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.logCommission("Commission activation changed", result)
	return result, nil
}

func (s *CoinLedgerService) ListCommissions(ctx context.Context, courseID string) ([]*commission.CourseCommission, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, commission.ErrInvalidCourse
	}
	commissions, err := s.txRunner.Reader().Commissions().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions for course %s: %w", courseID, err)
	}
	return commissions, nil
}

func allocationWarning(ctx context.Context, uow persistence.UnitOfWork, courseID string) (string, error) {
	commissions, err := uow.Commissions().ListByCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	return commission.AllocationWarning(courseID, commissions), nil
}

func (s *CoinLedgerService) logCommission(msg string, result *CommissionResult) {
	c := result.Commission
	s.logger.Info(msg,
		"commission_id", c.ID,
		"course_id", c.CourseID,
		"trainer_id", c.TrainerID,
		"percent", c.CommissionPercent,
		"is_active", c.IsActive,
		"updated_by", c.UpdatedBy,
	)
	if result.Warning != "" {
		s.logger.Warn("Course commissions over-allocated", "course_id", c.CourseID, "warning", result.Warning)
	}
}

// RecordSaleAndPayout debits the buyer for a course, pays each active trainer
// commission and credits the buyer's cashback, all in one transaction. The
// payouts and cashback reference the debit entry and derive their
// idempotency keys from the sale's key.
func (s *CoinLedgerService) RecordSaleAndPayout(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	buyerID, err := requireAccount(req.BuyerID)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	courseID := strings.TrimSpace(req.CourseID)
	if courseID == "" {
		return nil, commission.ErrInvalidCourse
	}
	if req.Coins <= 0 {
		return nil, shared.ErrInvalidAmount
	}

	priceCents := s.calculator.CoinsValueCents(req.Coins)
	if req.PriceEUR != "" {
		if priceCents, err = pricing.ParseEUR(req.PriceEUR); err != nil {
			return nil, err
		}
	}

	logger := s.logger.With("sale_key", key, "buyer_id", buyerID, "course_id", courseID)
	state := SaleInitiated
	advance := func(next SaleState) {
		state = next
		logger.Debug("Sale state advanced", "state", state)
	}

	var result *SaleResult
	err = s.run(ctx, "sale", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		commissions, err := uow.Commissions().ListByCourse(ctx, courseID)
		if err != nil {
			return false, err
		}
		payouts := commission.ComputePayouts(commissions, req.Coins)

		accountIDs := []string{buyerID}
		for _, p := range payouts {
			accountIDs = append(accountIDs, p.TrainerID)
		}
		wallets, err := s.walletManager.LockWallets(ctx, uow, accountIDs...)
		if err != nil {
			return false, err
		}
		buyer := wallets[buyerID]

		note := req.Note
		if note == "" {
			note = "Course " + courseID
		}
		debitPosting := Posting{
			Type:           ledger.EntryTypeCourseUnlock,
			Amount:         req.Coins,
			ReferenceID:    courseID,
			Note:           note,
			IdempotencyKey: key,
		}

		prior, err := replay(ctx, uow, buyerID, debitPosting)
		if err != nil {
			return false, err
		}
		if prior != nil {
			result, err = saleReplay(ctx, uow, buyer.Clone(), prior, key)
			return true, err
		}

		if !buyer.CanDebit(req.Coins) {
			return false, shared.ErrInsufficientBalance
		}
		advance(SaleBalanceChecked)

		// Postings in one sale get consecutive timestamps so history keeps their order
		now := s.now()
		tick := func() time.Time {
			at := now
			now = now.Add(time.Microsecond)
			return at
		}
		debitPosting.At = tick()
		debit, err := s.post(ctx, uow, buyer, debitPosting)
		if err != nil {
			return false, err
		}
		entries := []*ledger.Entry{debit}
		advance(SaleDebited)

		for _, p := range payouts {
			entry, err := s.post(ctx, uow, wallets[p.TrainerID], Posting{
				Type:           ledger.EntryTypeCommissionPayout,
				Amount:         p.Amount,
				ReferenceID:    debit.ID.String(),
				Note:           fmt.Sprintf("%d%% of course %s sale", p.Percent, courseID),
				IdempotencyKey: key + ":payout:" + p.TrainerID,
				At:             tick(),
			})
			if err != nil {
				return false, err
			}
			entries = append(entries, entry)
		}
		advance(SalePayoutsApplied)

		cashback := s.calculator.CashbackCoins(priceCents)
		if cashback > 0 {
			entry, err := s.post(ctx, uow, buyer, Posting{
				Type:           ledger.EntryTypeCashback,
				Amount:         cashback,
				ReferenceID:    debit.ID.String(),
				Note:           "Cashback for course " + courseID,
				IdempotencyKey: key + ":cashback",
				At:             tick(),
			})
			if err != nil {
				return false, err
			}
			entries = append(entries, entry)
		}
		advance(SaleCashbackCredited)

		paid := commission.TotalPaid(payouts)
		advance(SaleCompleted)
		result = &SaleResult{
			Result:   Result{Wallet: buyer.Clone(), Entries: entries},
			Payouts:  payouts,
			Retained: req.Coins - paid,
			Cashback: cashback,
			State:    state,
		}
		return false, nil
	})
	if err != nil {
		logger.Warn("Sale rolled back", "state", state, "error", err)
		return nil, err
	}

	logger.Info("Sale recorded",
		"coins", req.Coins,
		"payouts", len(result.Payouts),
		"retained", result.Retained,
		"cashback", result.Cashback,
		"replayed", result.Replayed,
	)
	return result, nil
}

// saleReplay rebuilds the result of a committed sale from its entries
func saleReplay(ctx context.Context, uow persistence.UnitOfWork, buyer *wallet.Wallet, debit *ledger.Entry, key string) (*SaleResult, error) {
	related, err := uow.Entries().ListByReference(ctx, debit.ID.String())
	if err != nil {
		return nil, err
	}

	result := &SaleResult{
		Result:   Result{Wallet: buyer, Entries: []*ledger.Entry{debit}, Replayed: true},
		Payouts:  []commission.Payout{},
		Retained: debit.Magnitude(),
		State:    SaleCompleted,
	}
	for _, e := range related {
		if !strings.HasPrefix(e.IdempotencyKey, key+":") {
			continue
		}
		result.Entries = append(result.Entries, e)
		switch e.Type {
		case ledger.EntryTypeCommissionPayout:
			result.Payouts = append(result.Payouts, commission.Payout{TrainerID: e.AccountID, Amount: e.Amount})
			result.Retained -= e.Amount
		case ledger.EntryTypeCashback:
			result.Cashback = e.Amount
		}
	}
	return result, nil
}
