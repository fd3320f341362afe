package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/platform/persistence"
)

const generateCodeAttempts = 3

// CreateKey registers a redemption key. A blank code is replaced with a
// generated DANCE-XXXX-XXXX code, retried on the rare collision.
func (s *CoinLedgerService) CreateKey(ctx context.Context, req CreateKeyRequest) (*redemption.Key, error) {
	maxUses := req.MaxUses
	if maxUses == 0 {
		maxUses = 1
	}

	generated := redemption.NormalizeCode(req.Code) == ""
	attempts := 1
	if generated {
		attempts = generateCodeAttempts
	}

	var key *redemption.Key
	var err error
	for i := 0; i < attempts; i++ {
		code := req.Code
		if generated {
			if code, err = redemption.GenerateCode(); err != nil {
				return nil, fmt.Errorf("failed to generate redemption code: %w", err)
			}
		}
		key, err = redemption.NewKey(code, req.CoinAmount, req.CreatedBy, maxUses, req.ExpiresIn, s.now())
		if err != nil {
			return nil, err
		}

		err = s.run(ctx, "create_key", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
			return false, uow.Keys().Create(ctx, key)
		})
		if err == nil || !generated || !errors.Is(err, redemption.ErrDuplicateCode) {
			break
		}
		s.logger.Warn("Generated redemption code collided, retrying", "code", key.Code)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Redemption key created", "key_id", key.ID, "code", key.Code, "coins", key.CoinAmount, "max_uses", key.MaxUses, "created_by", key.CreatedBy)
	return key, nil
}

func (s *CoinLedgerService) ListKeys(ctx context.Context, limit, offset int) ([]*redemption.Key, error) {
	if offset < 0 {
		offset = 0
	}
	keys, err := s.txRunner.Reader().Keys().List(ctx, ledger.ClampLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemption keys: %w", err)
	}
	return keys, nil
}

// RedeemKey consumes one use of a key and credits its coins. The key row is
// locked before the wallet so concurrent redeemers of a one-use key see
// exactly one winner; the others get Exhausted.
func (s *CoinLedgerService) RedeemKey(ctx context.Context, code, accountID string) (*RedeemResult, error) {
	accountID, err := requireAccount(accountID)
	if err != nil {
		return nil, err
	}
	code = redemption.NormalizeCode(code)
	if code == "" {
		return nil, &redemption.Error{Kind: redemption.KindNotFound}
	}

	var result *RedeemResult
	err = s.run(ctx, "redeem_key", func(ctx context.Context, uow persistence.UnitOfWork) (bool, error) {
		key, err := uow.Keys().GetByCodeForUpdate(ctx, code)
		if err != nil {
			return false, err
		}
		now := s.now()
		if err := key.Check(now); err != nil {
			return false, err
		}

		wallets, err := s.walletManager.LockWallets(ctx, uow, accountID)
		if err != nil {
			return false, err
		}
		w := wallets[accountID]

		idempotencyKey := "redeem:" + key.ID.String() + ":" + accountID
		prior, err := uow.Entries().GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return false, err
		}
		if prior != nil {
			return false, &redemption.Error{Kind: redemption.KindAlreadyRedeemed, Code: key.Code}
		}

		if err := uow.Keys().IncrementUses(ctx, key); err != nil {
			return false, err
		}

		entry, err := s.post(ctx, uow, w, Posting{
			Type:           ledger.EntryTypeKeyRedemption,
			Amount:         key.CoinAmount,
			ReferenceID:    key.ID.String(),
			Note:           "Redeemed " + key.Code,
			IdempotencyKey: idempotencyKey,
			At:             now,
		})
		if err != nil {
			return false, err
		}
		result = &RedeemResult{
			Result:   Result{Wallet: w.Clone(), Entries: []*ledger.Entry{entry}},
			Key:      key,
			Credited: key.CoinAmount,
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Redemption key redeemed", "code", code, "account_id", accountID, "remaining_uses", result.Key.RemainingUses())
	return result, nil
}
