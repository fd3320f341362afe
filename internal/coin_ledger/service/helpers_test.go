package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/coin_ledger/components"
	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/data/memory"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	service  *service.CoinLedgerService
	txRunner persistence.TxRunner
	clock    *fakeClock
	metrics  *metrics.Collector
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := newTestLogger()
	txRunner := memory.NewTxRunner(memory.NewStore(logger))
	return newFixtureWithRunner(t, txRunner)
}

func newFixtureWithRunner(t *testing.T, txRunner persistence.TxRunner) *fixture {
	t.Helper()
	logger := newTestLogger()

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	calculator, err := pricing.NewCalculator(50, 5)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)}
	collector := metrics.NewCollector("test")
	svc := service.NewCoinLedgerService(
		txRunner,
		components.NewWalletManager(logger),
		components.NewOutboxManager(logger),
		calculator,
		service.Settings{DailyBonus: 5, Location: berlin, StoreTimeout: time.Second},
		collector,
		logger,
	).WithClock(clock.Now)

	return &fixture{service: svc, txRunner: txRunner, clock: clock, metrics: collector}
}

var keySeq atomic.Int64

func nextKey() string {
	return fmt.Sprintf("test-key-%d", keySeq.Add(1))
}

// fund credits amount through an admin grant
func (f *fixture) fund(t *testing.T, accountID string, amount int64) {
	t.Helper()
	_, err := f.service.AdminAdjust(context.Background(), service.AdjustRequest{
		AccountID:      accountID,
		Delta:          amount,
		Note:           "test funding",
		ActorID:        "admin-1",
		IdempotencyKey: nextKey(),
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	w, err := f.service.GetWallet(context.Background(), accountID)
	require.NoError(t, err)
	return w.Balance
}

// requireConsistent checks a wallet against the replay of its entries
func (f *fixture) requireConsistent(t *testing.T, accountID string) {
	t.Helper()
	recon, err := f.service.Recompute(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, recon.Consistent)
}

// pendingOutbox counts undelivered outbox messages
func (f *fixture) pendingOutbox(t *testing.T) int {
	t.Helper()
	messages, err := f.txRunner.Reader().Outbox().GetPending(context.Background(), 1000)
	require.NoError(t, err)
	return len(messages)
}
