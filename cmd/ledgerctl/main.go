package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dancecoin-ledger/internal/coin_ledger/components"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/ledgerctl"
	"github.com/dancecoin-ledger/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig("ledgerctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays parseable with -o json
	log := logger.NewLoggerTo(cfg, os.Stderr)

	open := func(ctx context.Context) (*ledgerctl.Deps, func(), error) {
		store, err := components.OpenStore(ctx, log, cfg)
		if err != nil {
			return nil, nil, err
		}

		ledgerService, err := components.CreateLedgerService(store.TxRunner, nil, log, cfg)
		if err != nil {
			store.Close()
			return nil, nil, err
		}

		reconciler, err := coinledger.NewReconciler(store.TxRunner, ledgerService, cfg.WorkerPool.Size, log.With("component", "reconciler"))
		if err != nil {
			store.Close()
			return nil, nil, err
		}

		release := func() {
			reconciler.Shutdown()
			store.Close()
		}
		return &ledgerctl.Deps{Ledger: ledgerService, Reconciler: reconciler}, release, nil
	}

	if err := ledgerctl.Run(ctx, open, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
