package memory

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() *TxRunner {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewTxRunner(NewStore(logger))
}

func credit(t *testing.T, ctx context.Context, uow persistence.UnitOfWork, accountID string, amount int64, key string, at time.Time) *ledger.Entry {
	t.Helper()
	w, err := uow.Wallets().GetOrCreateForUpdate(ctx, accountID)
	require.NoError(t, err)
	require.NoError(t, w.Credit(amount, at))
	require.NoError(t, uow.Wallets().Update(ctx, w))

	e := &ledger.Entry{
		ID:             uuid.New(),
		AccountID:      accountID,
		Type:           ledger.EntryTypeAdminGrant,
		Amount:         amount,
		BalanceAfter:   w.Balance,
		IdempotencyKey: key,
		CreatedAt:      at,
	}
	require.NoError(t, uow.Entries().Append(ctx, e))
	return e
}

func TestTxRunner_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner()
	now := time.Now().UTC()

	err := runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		credit(t, ctx, uow, "acc-1", 10, "k1", now)
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		credit(t, ctx, uow, "acc-1", 5, "k2", now)
		credit(t, ctx, uow, "acc-2", 5, "k3", now)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := runner.Reader().Wallets().GetByAccountID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), w.Balance)

	_, err = runner.Reader().Wallets().GetByAccountID(ctx, "acc-2")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound{})

	e, err := runner.Reader().Entries().GetByIdempotencyKey(ctx, "k2")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestTxRunner_ExpiredContextRollsBack(t *testing.T) {
	runner := newTestRunner()
	ctx, cancel := context.WithCancel(context.Background())

	err := runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		credit(t, ctx, uow, "acc-1", 10, "k1", time.Now().UTC())
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = runner.Reader().Wallets().GetByAccountID(context.Background(), "acc-1")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound{})
}

func TestWalletRepository_StaleUpdate(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner()

	err := runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		w, err := uow.Wallets().GetOrCreateForUpdate(ctx, "acc-1")
		require.NoError(t, err)
		require.NoError(t, w.Credit(5, time.Now()))
		require.NoError(t, uow.Wallets().Update(ctx, w))

		// Same version again
		return uow.Wallets().Update(ctx, w)
	})
	assert.ErrorIs(t, err, wallet.ErrConcurrentModification{})
}

func TestEntryRepository_DuplicateKeyAndPaging(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner()
	base := time.Now().UTC().Truncate(time.Microsecond)

	var entries []*ledger.Entry
	err := runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		for i := 0; i < 5; i++ {
			entries = append(entries, credit(t, ctx, uow, "acc-1", 1, uuid.NewString(), base.Add(time.Duration(i)*time.Second)))
		}
		return nil
	})
	require.NoError(t, err)

	err = runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		dup := *entries[0]
		dup.ID = uuid.New()
		return uow.Entries().Append(ctx, &dup)
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateEntry{})

	repo := runner.Reader().Entries()
	first, err := repo.ListByAccount(ctx, "acc-1", ledger.PageQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, entries[4].ID, first[0].ID)
	assert.Equal(t, entries[3].ID, first[1].ID)

	second, err := repo.ListByAccount(ctx, "acc-1", ledger.PageQuery{Limit: 2, Before: ledger.CursorAfter(first[1])})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, entries[2].ID, second[0].ID)
	assert.Equal(t, entries[1].ID, second[1].ID)

	totals, err := repo.Totals(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Totals{Sum: 5, Credits: 5, Count: 5}, totals)
}

func TestRedemptionKeyRepository_ConcurrentUses(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner()

	k, err := redemption.NewKey("DANCE-TEST-0002", 10, "admin", 3, nil, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, runner.Reader().Keys().Create(ctx, k))
	assert.ErrorIs(t, runner.Reader().Keys().Create(ctx, k), redemption.ErrDuplicateCode)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
				locked, err := uow.Keys().GetByCodeForUpdate(ctx, k.Code)
				if err != nil {
					return err
				}
				return uow.Keys().IncrementUses(ctx, locked)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	stored, err := runner.Reader().Keys().GetByCode(ctx, k.Code)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentUses)
}

func TestCommissionRepository_UpsertKeepsActiveFlag(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunner().Reader().Commissions()
	now := time.Now().UTC()

	c, err := commission.New("course-1", "trainer-1", 20, "admin", "", now)
	require.NoError(t, err)
	stored, err := repo.Upsert(ctx, c)
	require.NoError(t, err)

	_, err = repo.SetActive(ctx, stored.ID, false, "admin")
	require.NoError(t, err)

	edit, err := commission.New("course-1", "trainer-1", 35, "admin-2", "raised", now.Add(time.Minute))
	require.NoError(t, err)
	updated, err := repo.Upsert(ctx, edit)
	require.NoError(t, err)

	assert.Equal(t, stored.ID, updated.ID)
	assert.Equal(t, 35, updated.CommissionPercent)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "admin-2", updated.UpdatedBy)
	assert.Equal(t, "raised", updated.Notes)

	// An edit without notes keeps the stored ones
	edit, err = commission.New("course-1", "trainer-1", 40, "admin-3", "", now.Add(2*time.Minute))
	require.NoError(t, err)
	updated, err = repo.Upsert(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, 40, updated.CommissionPercent)
	assert.Equal(t, "raised", updated.Notes)

	list, err := repo.ListByCourse(ctx, "course-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunner().Reader().Outbox()

	m := &outbox.Message{EntryID: uuid.New(), AccountID: "acc-1", Status: shared.OutboxStatusPending}
	require.NoError(t, repo.Create(ctx, m))
	assert.Equal(t, int64(1), m.ID)

	dup := *m
	assert.ErrorAs(t, repo.Create(ctx, &dup), &outbox.ErrDuplicateMessage{})

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.IncrementAttempts(ctx, m.ID))
	require.NoError(t, repo.UpdateStatus(ctx, m.ID, shared.OutboxStatusProcessed))

	pending, err = repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := repo.GetByEntryID(ctx, m.EntryID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 99, shared.OutboxStatusProcessed), outbox.ErrMessageNotFound{})
}
