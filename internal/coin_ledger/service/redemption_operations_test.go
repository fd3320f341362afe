package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemKey_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.service.CreateKey(ctx, service.CreateKeyRequest{Code: " dance-ab12-cd34 ", CoinAmount: 10, CreatedBy: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "DANCE-AB12-CD34", key.Code)
	assert.Equal(t, 1, key.MaxUses)

	result, err := f.service.RedeemKey(ctx, "dance-ab12-cd34", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.Credited)
	assert.Equal(t, int64(10), result.Wallet.Balance)
	require.Len(t, result.Entries, 1)
	entry := result.Entries[0]
	assert.Equal(t, ledger.EntryTypeKeyRedemption, entry.Type)
	assert.Equal(t, key.ID.String(), entry.ReferenceID)
	assert.Equal(t, 1, result.Key.CurrentUses)
	assert.Equal(t, 0, result.Key.RemainingUses())

	_, err = f.service.RedeemKey(ctx, "DANCE-AB12-CD34", "bob")
	assert.ErrorIs(t, err, redemption.ErrExhausted)

	_, err = f.service.RedeemKey(ctx, "DANCE-ZZZZ-ZZZZ", "bob")
	assert.ErrorIs(t, err, redemption.ErrNotFound)

	_, err = f.service.CreateKey(ctx, service.CreateKeyRequest{Code: "DANCE-AB12-CD34", CoinAmount: 5, CreatedBy: "admin-2"})
	assert.ErrorIs(t, err, redemption.ErrDuplicateCode)

	assert.Equal(t, int64(0), f.balance(t, "bob"))
	f.requireConsistent(t, "alice")
}

func TestRedeemKey_MultiUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.CreateKey(ctx, service.CreateKeyRequest{Code: "SPRING", CoinAmount: 3, MaxUses: 2, CreatedBy: "admin-1"})
	require.NoError(t, err)

	_, err = f.service.RedeemKey(ctx, "spring", "alice")
	require.NoError(t, err)

	_, err = f.service.RedeemKey(ctx, "spring", "alice")
	assert.ErrorIs(t, err, redemption.ErrAlreadyRedeemed)

	result, err := f.service.RedeemKey(ctx, "spring", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Key.CurrentUses)

	_, err = f.service.RedeemKey(ctx, "spring", "carol")
	assert.ErrorIs(t, err, redemption.ErrExhausted)
}

func TestRedeemKey_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	day := 24 * time.Hour
	_, err := f.service.CreateKey(ctx, service.CreateKeyRequest{Code: "FLASH", CoinAmount: 3, ExpiresIn: &day, CreatedBy: "admin-1"})
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(25 * time.Hour))
	_, err = f.service.RedeemKey(ctx, "FLASH", "alice")
	assert.ErrorIs(t, err, redemption.ErrExpired)
	assert.Equal(t, int64(0), f.balance(t, "alice"))
}

func TestCreateKey_Generated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	key, err := f.service.CreateKey(ctx, service.CreateKeyRequest{CoinAmount: 10, MaxUses: 5, CreatedBy: "admin-1"})
	require.NoError(t, err)
	assert.Regexp(t, `^DANCE-[A-Z2-9]{4}-[A-Z2-9]{4}$`, key.Code)

	_, err = f.service.CreateKey(ctx, service.CreateKeyRequest{CoinAmount: 0, CreatedBy: "admin-1"})
	assert.ErrorIs(t, err, redemption.ErrInvalidCoins)

	keys, err := f.service.ListKeys(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
}

func TestRedeemKey_ConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.CreateKey(ctx, service.CreateKeyRequest{Code: "DANCE-ONCE-ONLY", CoinAmount: 10, CreatedBy: "admin-1"})
	require.NoError(t, err)

	const redeemers = 10
	var wg sync.WaitGroup
	errs := make([]error, redeemers)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.RedeemKey(ctx, "DANCE-ONCE-ONLY", fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	var total int64
	for i, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, redemption.ErrExhausted), "unexpected error: %v", err)
		}
		total += f.balance(t, fmt.Sprintf("user-%d", i))
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, int64(10), total)
}
