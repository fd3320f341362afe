package service

import (
	"context"
	"fmt"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
)

// CreditDailyBonus credits the configured bonus once per calendar day in the
// configured timezone. A second claim on the same day is ErrAlreadyClaimedToday.
func (s *CoinLedgerService) CreditDailyBonus(ctx context.Context, accountID string) (*Result, error) {
	accountID, err := requireAccount(accountID)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.run(ctx, "daily_bonus", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		wallets, err := s.walletManager.LockWallets(ctx, uow, accountID)
		if err != nil {
			return false, err
		}
		w := wallets[accountID]

		now := s.now()
		key := "dailyBonus:" + accountID + ":" + wallet.DayKey(now, s.settings.Location)
		if !w.CanClaimDailyBonus(now, s.settings.Location) {
			return false, shared.ErrAlreadyClaimedToday
		}
		prior, err := uow.Entries().GetByIdempotencyKey(ctx, key)
		if err != nil {
			return false, err
		}
		if prior != nil {
			return false, shared.ErrAlreadyClaimedToday
		}

		w.MarkDailyBonus(now)
		entry, err := s.post(ctx, uow, w, Posting{
			Type:           ledger.EntryTypeDailyBonus,
			Amount:         s.settings.DailyBonus,
			Note:           "Daily bonus",
			IdempotencyKey: key,
			At:             now,
		})
		if err != nil {
			return false, err
		}
		result = &Result{Wallet: w.Clone(), Entries: []*ledger.Entry{entry}}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Daily bonus credited", "account_id", accountID, "balance", result.Wallet.Balance)
	return result, nil
}

func (s *CoinLedgerService) ChargeCourseUnlock(ctx context.Context, req ChargeRequest) (*Result, error) {
	return s.charge(ctx, ledger.EntryTypeCourseUnlock, req)
}

func (s *CoinLedgerService) ChargeBooking(ctx context.Context, req ChargeRequest) (*Result, error) {
	return s.charge(ctx, ledger.EntryTypeBookingCharge, req)
}

func (s *CoinLedgerService) ChargePlan(ctx context.Context, req ChargeRequest) (*Result, error) {
	return s.charge(ctx, ledger.EntryTypePlanCharge, req)
}

func (s *CoinLedgerService) ChargeReview(ctx context.Context, req ChargeRequest) (*Result, error) {
	return s.charge(ctx, ledger.EntryTypeReviewCharge, req)
}

func (s *CoinLedgerService) charge(ctx context.Context, entryType ledger.EntryType, req ChargeRequest) (*Result, error) {
	accountID, err := requireAccount(req.AccountID)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}

	return s.single(ctx, string(entryType), accountID, Posting{
		Type:           entryType,
		Amount:         req.Amount,
		ReferenceID:    req.ReferenceID,
		Note:           req.Note,
		IdempotencyKey: key,
	})
}

// Refund credits back a debit on the same account with its compensating type.
// Each debit can be refunded once, in full.
func (s *CoinLedgerService) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	accountID, err := requireAccount(req.AccountID)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.run(ctx, "refund", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		wallets, err := s.walletManager.LockWallets(ctx, uow, accountID)
		if err != nil {
			return false, err
		}
		w := wallets[accountID]

		original, err := uow.Entries().GetByID(ctx, req.EntryID)
		if err != nil {
			return false, err
		}
		if original.AccountID != accountID {
			return false, ledger.ErrEntryNotFound{ID: req.EntryID}
		}
		refundType, ok := original.Type.RefundType()
		if !ok {
			return false, shared.ErrNotRefundable
		}

		note := req.Note
		if note == "" {
			note = fmt.Sprintf("Refund of %s", original.Type)
		}
		posting := Posting{
			Type:           refundType,
			Amount:         original.Magnitude(),
			ReferenceID:    original.ID.String(),
			Note:           note,
			IdempotencyKey: key,
			ActorID:        req.ActorID,
		}

		prior, err := replay(ctx, uow, accountID, posting)
		if err != nil {
			return false, err
		}
		if prior != nil {
			result = &Result{Wallet: w.Clone(), Entries: []*ledger.Entry{prior}, Replayed: true}
			return true, nil
		}

		related, err := uow.Entries().ListByReference(ctx, original.ID.String())
		if err != nil {
			return false, err
		}
		for _, e := range related {
			if e.AccountID == accountID && e.Type == refundType {
				return false, shared.ErrAlreadyRefunded
			}
		}

		entry, err := s.post(ctx, uow, w, posting)
		if err != nil {
			return false, err
		}
		result = &Result{Wallet: w.Clone(), Entries: []*ledger.Entry{entry}}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdminAdjust grants a positive delta or removes a negative one
func (s *CoinLedgerService) AdminAdjust(ctx context.Context, req AdjustRequest) (*Result, error) {
	accountID, err := requireAccount(req.AccountID)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	p := Posting{
		Type:           ledger.EntryTypeAdminGrant,
		Amount:         req.Delta,
		Note:           req.Note,
		IdempotencyKey: key,
		ActorID:        req.ActorID,
	}
	switch {
	case req.Delta == 0:
		return nil, shared.ErrInvalidAmount
	case req.Delta < 0:
		p.Type = ledger.EntryTypeAdminRemove
		p.Amount = -req.Delta
	}
	return s.single(ctx, "admin_adjust", accountID, p)
}

// Award credits a promotion or referral bonus
func (s *CoinLedgerService) Award(ctx context.Context, req AwardRequest) (*Result, error) {
	accountID, err := requireAccount(req.AccountID)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if req.Type != ledger.EntryTypePromotion && req.Type != ledger.EntryTypeReferral {
		return nil, shared.ErrInvalidEntryType
	}
	if req.Amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}

	return s.single(ctx, "award", accountID, Posting{
		Type:           req.Type,
		Amount:         req.Amount,
		ReferenceID:    req.ReferenceID,
		Note:           req.Note,
		IdempotencyKey: key,
		ActorID:        req.ActorID,
	})
}

// CreditPurchase credits coins bought through a payment provider. The
// purchase id doubles as the idempotency key unless the caller sent one.
func (s *CoinLedgerService) CreditPurchase(ctx context.Context, req *shared.PurchaseRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("%d coins via %s", req.Coins, req.Provider)
	if req.PriceEUR != "" {
		note = fmt.Sprintf("%s for EUR %s", note, req.PriceEUR)
	}

	logger := s.logger
	if req.CorrelationID != "" {
		logger = s.logger.With("correlation_id", req.CorrelationID)
	}

	result, err := s.single(ctx, "purchase", req.AccountID, Posting{
		Type:           ledger.EntryTypePurchase,
		Amount:         req.Coins,
		ReferenceID:    req.PurchaseID,
		Note:           note,
		IdempotencyKey: req.Key(),
	})
	if err != nil {
		logger.Error("Failed to credit purchase", "purchase_id", req.PurchaseID, "account_id", req.AccountID, "error", err)
		return nil, err
	}
	logger.Info("Purchase credited", "purchase_id", req.PurchaseID, "account_id", req.AccountID, "replayed", result.Replayed)
	return result, nil
}

// single posts one idempotent entry against one wallet
func (s *CoinLedgerService) single(ctx context.Context, op, accountID string, p Posting) (*Result, error) {
	var result *Result
	err := s.run(ctx, op, func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		wallets, err := s.walletManager.LockWallets(ctx, uow, accountID)
		if err != nil {
			return false, err
		}
		w := wallets[accountID]

		prior, err := replay(ctx, uow, accountID, p)
		if err != nil {
			return false, err
		}
		if prior != nil {
			result = &Result{Wallet: w.Clone(), Entries: []*ledger.Entry{prior}, Replayed: true}
			return true, nil
		}

		entry, err := s.post(ctx, uow, w, p)
		if err != nil {
			return false, err
		}
		result = &Result{Wallet: w.Clone(), Entries: []*ledger.Entry{entry}}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
