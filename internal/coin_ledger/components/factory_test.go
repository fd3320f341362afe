package components

import (
	"context"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Coins: config.CoinsConfig{
			ValueCents:      50,
			CashbackPercent: 5,
			DailyBonus:      5,
			Timezone:        "Europe/Berlin",
			StoreTimeout:    time.Second,
		},
		Store: config.StoreConfig{Driver: config.StoreDriverMemory},
	}
}

func TestCreateLedgerService(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("wires the service on the memory store", func(t *testing.T) {
		cfg := testConfig()
		store, err := OpenStore(ctx, logger, cfg)
		require.NoError(t, err)
		defer store.Close()
		assert.Nil(t, store.Postgres)

		ledgerService, err := CreateLedgerService(store.TxRunner, metrics.NewCollector("test"), logger, cfg)
		require.NoError(t, err)

		result, err := ledgerService.CreditDailyBonus(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Wallet.Balance)

		quote, err := ledgerService.Quote("4.99")
		require.NoError(t, err)
		assert.Equal(t, int64(10), quote.Coins)
	})

	t.Run("rejects invalid coin economics", func(t *testing.T) {
		cfg := testConfig()
		cfg.Coins.ValueCents = 0

		ledgerService, err := CreateLedgerService(nil, nil, logger, cfg)
		assert.Nil(t, ledgerService)
		assert.ErrorContains(t, err, "failed to create pricing calculator")
	})

	t.Run("rejects an unknown timezone", func(t *testing.T) {
		cfg := testConfig()
		cfg.Coins.Timezone = "Mars/Olympus"

		ledgerService, err := CreateLedgerService(nil, nil, logger, cfg)
		assert.Nil(t, ledgerService)
		assert.ErrorContains(t, err, "failed to load daily bonus timezone")
	})
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "sqlite"

	store, err := OpenStore(context.Background(), newTestLogger(), cfg)
	assert.Nil(t, store)
	assert.ErrorContains(t, err, `unknown ledger store "sqlite"`)
}
