package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/data/memory"
	"github.com/dancecoin-ledger/internal/data/postgres"
	"github.com/dancecoin-ledger/internal/domain/pricing"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/dancecoin-ledger/internal/platform/persistence"
)

// CreateLedgerService builds the coin ledger service with all its dependencies
func CreateLedgerService(
	txRunner persistence.TxRunner,
	collector *metrics.Collector,
	logger *slog.Logger,
	cfg *config.Config,
) (*service.CoinLedgerService, error) {
	calculator, err := pricing.NewCalculator(cfg.Coins.ValueCents, cfg.Coins.CashbackPercent)
	if err != nil {
		return nil, fmt.Errorf("failed to create pricing calculator: %w", err)
	}
	location, err := cfg.Coins.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load daily bonus timezone: %w", err)
	}

	walletManager := NewWalletManager(logger.With("component", "wallet_manager"))
	outboxManager := NewOutboxManager(logger.With("component", "outbox_manager"))

	ledgerService := service.NewCoinLedgerService(
		txRunner,
		walletManager,
		outboxManager,
		calculator,
		service.Settings{
			DailyBonus:   cfg.Coins.DailyBonus,
			Location:     location,
			StoreTimeout: cfg.Coins.StoreTimeout,
		},
		collector,
		logger.With("component", "coin_ledger"),
	)

	logger.Info("Created coin ledger service",
		"coin_value_cents", cfg.Coins.ValueCents,
		"cashback_percent", cfg.Coins.CashbackPercent,
		"daily_bonus", cfg.Coins.DailyBonus,
		"timezone", location.String(),
	)
	return ledgerService, nil
}

// Store is an opened ledger store and the way to release it
type Store struct {
	TxRunner persistence.TxRunner
	Postgres *persistence.PostgresDB
	Close    func()
}

// OpenStore connects the store selected by LEDGER_STORE. Postgres is
// migrated before use; the memory store starts empty.
func OpenStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory ledger store, balances are lost on exit")
		return &Store{
			TxRunner: memory.NewTxRunner(memory.NewStore(logger.With("component", "memory_store"))),
			Close:    func() {},
		}, nil
	case config.StoreDriverPostgres:
		version, err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Ledger schema ready", "version", version)
		db, err := persistence.NewPostgresDB(ctx, logger, &cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &Store{
			TxRunner: postgres.NewTxRunner(logger.With("component", "postgres_store"), db),
			Postgres: db,
			Close:    db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown ledger store %q", cfg.Store.Driver)
	}
}
