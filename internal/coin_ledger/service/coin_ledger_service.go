package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/dancecoin-ledger/internal/platform/persistence"
)

// Settings is the coin economics the service enforces
type Settings struct {
	DailyBonus   int64
	Location     *time.Location
	StoreTimeout time.Duration
}

type CoinLedgerService struct {
	txRunner      persistence.TxRunner
	walletManager WalletManager
	outboxManager OutboxManager
	calculator    pricing.Calculator
	settings      Settings
	clock         func() time.Time
	metrics       *metrics.Collector
	logger        *slog.Logger
}

func NewCoinLedgerService(
	txRunner persistence.TxRunner,
	walletManager WalletManager,
	outboxManager OutboxManager,
	calculator pricing.Calculator,
	settings Settings,
	collector *metrics.Collector,
	logger *slog.Logger,
) *CoinLedgerService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &CoinLedgerService{
		txRunner:      txRunner,
		walletManager: walletManager,
		outboxManager: outboxManager,
		calculator:    calculator,
		settings:      settings,
		clock:         time.Now,
		metrics:       collector,
		logger:        logger,
	}
}

// WithClock replaces the time source, for tests
func (s *CoinLedgerService) WithClock(clock func() time.Time) *CoinLedgerService {
	s.clock = clock
	return s
}

// now is stored at microsecond precision so entries read back unchanged from Postgres
func (s *CoinLedgerService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// run executes fn in one store transaction bounded by the store timeout.
// A deadline hit or a failed commit leaves the outcome unknown and is
// reported as ErrIndeterminate.
func (s *CoinLedgerService) run(ctx context.Context, op string, fn func(ctx context.Context, uow persistence.UnitOfWork) (bool, error)) error {
	start := time.Now()
	if s.settings.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.StoreTimeout)
		defer cancel()
	}

	replayed := false
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		var err error
		replayed, err = fn(ctx, uow)
		return err
	})

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil && replayed:
		outcome = metrics.OutcomeReplay
	case err != nil:
		outcome = metrics.OutcomeFailure
		err = s.classify(op, err)
	}
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, outcome, time.Since(start))
	}
	return err
}

func (s *CoinLedgerService) classify(op string, err error) error {
	switch {
	case errors.Is(err, persistence.ErrCommitFailed), errors.Is(err, context.DeadlineExceeded):
		s.logger.Error("Ledger operation outcome unknown", "operation", op, "error", err)
		return fmt.Errorf("%w: %s: %v", shared.ErrIndeterminate, op, err)
	case errors.Is(err, shared.ErrInvariantViolation{}):
		s.logger.Error("Ledger invariant violated", "operation", op, "error", err)
		if s.metrics != nil {
			s.metrics.IntegrityFault(op)
		}
		return err
	case errors.Is(err, ledger.ErrDuplicateEntry{}):
		// Another transaction committed the same key first
		return fmt.Errorf("%w: %v", shared.ErrIdempotencyConflict, err)
	}
	return err
}

// post applies p to w and queues its outbox message
func (s *CoinLedgerService) post(ctx context.Context, uow persistence.UnitOfWork, w *wallet.Wallet, p Posting) (*ledger.Entry, error) {
	if p.At.IsZero() {
		p.At = s.now()
	}
	entry, err := s.walletManager.Apply(ctx, uow, w, p)
	if err != nil {
		return nil, err
	}
	if err := s.outboxManager.Enqueue(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// replay returns the entry already written under want's idempotency key, if
// any. A prior entry that differs from want in account, type, amount or
// reference means the key was reused for another request.
func replay(ctx context.Context, uow persistence.UnitOfWork, accountID string, want Posting) (*ledger.Entry, error) {
	prior, err := uow.Entries().GetByIdempotencyKey(ctx, want.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, nil
	}
	if prior.AccountID != accountID ||
		prior.Type != want.Type ||
		prior.Magnitude() != want.Amount ||
		prior.ReferenceID != want.ReferenceID {
		return nil, shared.ErrIdempotencyConflict
	}
	return prior, nil
}

func requireKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", shared.ErrIdempotencyKeyRequired
	}
	return key, nil
}

func requireAccount(accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", shared.ErrInvalidAccount
	}
	return accountID, nil
}

// GetWallet returns the stored wallet, or an empty one for an account that
// never had a balance-affecting event.
func (s *CoinLedgerService) GetWallet(ctx context.Context, accountID string) (*wallet.Wallet, error) {
	accountID, err := requireAccount(accountID)
	if err != nil {
		return nil, err
	}

	w, err := s.txRunner.Reader().Wallets().GetByAccountID(ctx, accountID)
	if errors.Is(err, wallet.ErrWalletNotFound{}) {
		now := s.now()
		w = wallet.New(accountID, now)
		w.Version = 0
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %s: %w", accountID, err)
	}
	return w, nil
}

// History pages through an account's entries newest first
func (s *CoinLedgerService) History(ctx context.Context, accountID string, limit int, cursor string) (*HistoryPage, error) {
	accountID, err := requireAccount(accountID)
	if err != nil {
		return nil, err
	}

	query := ledger.PageQuery{Limit: ledger.ClampLimit(limit)}
	if cursor != "" {
		before, err := ledger.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		query.Before = before
	}

	entries, err := s.txRunner.Reader().Entries().ListByAccount(ctx, accountID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for %s: %w", accountID, err)
	}

	page := &HistoryPage{Entries: entries}
	if len(entries) == query.Limit {
		page.NextCursor = ledger.CursorAfter(entries[len(entries)-1]).Encode()
	}
	return page, nil
}

// Quote prices a euro amount in coins and cashback
func (s *CoinLedgerService) Quote(priceEUR string) (pricing.Quote, error) {
	return s.calculator.Quote(priceEUR)
}
