package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dancecoin-ledger/internal/api_gateway"
	"github.com/dancecoin-ledger/internal/api_gateway/service"
	"github.com/dancecoin-ledger/internal/coin_ledger/components"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/data/mongo"
	"github.com/dancecoin-ledger/internal/data/postgres"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	workercomponents "github.com/dancecoin-ledger/internal/ledger_worker/components"
	"github.com/dancecoin-ledger/internal/ledger_worker/outbox_poller"
	"github.com/dancecoin-ledger/internal/logger"
	"github.com/dancecoin-ledger/internal/platform/messaging/notifier"
	"github.com/dancecoin-ledger/internal/platform/messaging/producers"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	collector := metrics.NewCollector("api_gateway")

	// Initialize the ledger store and service
	store, err := components.OpenStore(appCtx, log, cfg)
	if err != nil {
		log.Error("Failed to open ledger store", "error", err)
		os.Exit(1)
	}

	ledgerService, err := components.CreateLedgerService(store.TxRunner, collector, log, cfg)
	if err != nil {
		log.Error("Failed to create coin ledger service", "error", err)
		os.Exit(1)
	}

	reconciler, err := coinledger.NewReconciler(store.TxRunner, ledgerService, cfg.WorkerPool.Size, log.With("component", "reconciler"))
	if err != nil {
		log.Error("Failed to create reconciler", "error", err)
		os.Exit(1)
	}

	// Balance notifications are optional in both store modes
	var redisClient goredis.UniversalClient
	var balanceNotifier *notifier.BalanceNotifier
	if cfg.Redis.Enabled {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		balanceNotifier = notifier.NewBalanceNotifier(redisClient, cfg.Redis.ChannelPrefix, log.With("component", "balance_notifier"))
	}

	var (
		purchasePublisher producers.PurchasePublisher
		entryLookup       service.EntryLookup
		history           ledger.HistoryRepository
		mongoDB           *persistence.MongoDB
		poller            *outbox_poller.Poller
	)

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		history = mongo.NewHistoryRepository(log, mongoDB.Database(), cfg.Coins.HistoryLimit)

		// Purchases are credited by the ledger worker
		purchasePublisher, err = producers.NewPurchaseRequestProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize purchase Kafka producer", "error", err)
			os.Exit(1)
		}
		entryLookup = postgres.NewEntryRepository(log, store.Postgres)
	default:
		// Single process: credit purchases inline and drain the outbox here
		purchasePublisher = service.NewInlinePurchasePublisher(ledgerService, log)
		entryLookup = store.TxRunner.Reader().Entries()

		sinks := workercomponents.Sinks{}
		if balanceNotifier != nil {
			sinks.Notifier = balanceNotifier
		}
		poller = workercomponents.CreateOutboxPoller(store.TxRunner.Reader().Outbox(), sinks, collector, log, cfg)
	}

	// Initialize services
	deps := api_gateway.Dependencies{
		Ledger:     ledgerService,
		Reconciler: reconciler,
		Purchases:  service.NewPurchaseService(log, entryLookup, purchasePublisher),
		Activity:   service.NewActivityService(log, history, ledgerService),
		Metrics:    collector,
	}
	if balanceNotifier != nil {
		deps.Watcher = balanceNotifier
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, deps)
	log.Info("REST server initialized", "store", cfg.Store.Driver)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup
	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(appCtx)
		}()
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain in-flight requests before the stores go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Cancel the application context
	cancelAppCtx()
	wg.Wait()

	reconciler.Shutdown()

	if err = purchasePublisher.Close(); err != nil {
		log.Error("Error closing purchase publisher", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	// Shutdown the ledger store
	store.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed")
}
