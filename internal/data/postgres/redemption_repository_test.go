package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyRowColumns = []string{"id", "code", "coin_amount", "max_uses", "current_uses", "expires_at", "created_by", "created_at"}

func newTestKey() *redemption.Key {
	expires := time.Now().UTC().Add(24 * time.Hour)
	return &redemption.Key{
		ID:         uuid.New(),
		Code:       "DANCE-ABCD-EFGH",
		CoinAmount: 50,
		MaxUses:    2,
		ExpiresAt:  &expires,
		CreatedBy:  "admin-1",
		CreatedAt:  time.Now().UTC(),
	}
}

func keyRow(k *redemption.Key) *pgxmock.Rows {
	return pgxmock.NewRows(keyRowColumns).
		AddRow(k.ID, k.Code, k.CoinAmount, k.MaxUses, k.CurrentUses, k.ExpiresAt, k.CreatedBy, k.CreatedAt)
}

func TestRedemptionKeyRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RedemptionKeyRepository{querier: mock, logger: newTestLogger()}
	k := newTestKey()
	query := regexp.QuoteMeta(`INSERT INTO redemption_keys`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(k.ID, k.Code, k.CoinAmount, k.MaxUses, k.CurrentUses, k.ExpiresAt, k.CreatedBy, k.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, k))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate code", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(k.ID, k.Code, k.CoinAmount, k.MaxUses, k.CurrentUses, k.ExpiresAt, k.CreatedBy, k.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "redemption_keys_code_key"})

		err := repo.Create(ctx, k)
		assert.ErrorIs(t, err, redemption.ErrDuplicateCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedemptionKeyRepository_GetByCode(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RedemptionKeyRepository{querier: mock, logger: newTestLogger()}
	k := newTestKey()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + keyColumns + ` FROM redemption_keys WHERE code = $1`)).
			WithArgs(k.Code).
			WillReturnRows(keyRow(k))

		got, err := repo.GetByCode(ctx, k.Code)
		require.NoError(t, err)
		assert.Equal(t, k, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locked", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE code = $1 FOR UPDATE`)).
			WithArgs(k.Code).
			WillReturnRows(keyRow(k))

		got, err := repo.GetByCodeForUpdate(ctx, k.Code)
		require.NoError(t, err)
		assert.Equal(t, k.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM redemption_keys`)).
			WithArgs("DANCE-NOPE").
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByCode(ctx, "DANCE-NOPE")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, redemption.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedemptionKeyRepository_IncrementUses(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RedemptionKeyRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta(`SET current_uses = current_uses + 1 WHERE id = $1 AND current_uses < max_uses RETURNING current_uses`)

	t.Run("success", func(t *testing.T) {
		k := newTestKey()
		mock.ExpectQuery(query).WithArgs(k.ID).WillReturnRows(pgxmock.NewRows([]string{"current_uses"}).AddRow(1))

		require.NoError(t, repo.IncrementUses(ctx, k))
		assert.Equal(t, 1, k.CurrentUses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exhausted", func(t *testing.T) {
		k := newTestKey()
		mock.ExpectQuery(query).WithArgs(k.ID).WillReturnError(pgx.ErrNoRows)

		err := repo.IncrementUses(ctx, k)
		assert.ErrorIs(t, err, redemption.ErrExhausted)
		assert.Equal(t, 0, k.CurrentUses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guard matches no row", func(t *testing.T) {
		k := newTestKey()
		k.CurrentUses = 1
		mock.ExpectQuery(query).WithArgs(k.ID).WillReturnRows(pgxmock.NewRows([]string{"current_uses"}))

		err := repo.IncrementUses(ctx, k)
		assert.ErrorIs(t, err, redemption.ErrExhausted)
		assert.Equal(t, 1, k.CurrentUses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		k := newTestKey()
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(k.ID).WillReturnError(dbErr)

		err := repo.IncrementUses(ctx, k)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, redemption.ErrExhausted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedemptionKeyRepository_List(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RedemptionKeyRepository{querier: mock, logger: newTestLogger()}
	k := newTestKey()

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(10, 0).
		WillReturnRows(keyRow(k))

	keys, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, k.Code, keys[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two redeemers lock a one-use key in turn; the second still sees the key as
// valid in its snapshot but the guarded update consumes nothing.
func TestRedemptionKeyRepository_LosingRedeemerIsExhausted(t *testing.T) {
	ctx := context.Background()
	runner, mock := newMockTxRunner(t)

	k := newTestKey()
	k.MaxUses = 1

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM redemption_keys WHERE code = $1 FOR UPDATE`)).
		WithArgs(k.Code).
		WillReturnRows(keyRow(k))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND current_uses < max_uses`)).
		WithArgs(k.ID).
		WillReturnRows(pgxmock.NewRows([]string{"current_uses"}))
	mock.ExpectRollback()

	err := runner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		locked, err := uow.Keys().GetByCodeForUpdate(ctx, k.Code)
		if err != nil {
			return err
		}
		if err := locked.Check(time.Now().UTC()); err != nil {
			return err
		}
		return uow.Keys().IncrementUses(ctx, locked)
	})
	assert.ErrorIs(t, err, redemption.ErrExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
