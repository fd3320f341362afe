package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/panjf2000/ants/v2"
)

const reconcilePageSize = 100

// Recomputer checks one account's wallet against its ledger
type Recomputer interface {
	Recompute(ctx context.Context, accountID string) (*Reconciliation, error)
}

// Fault is an account that failed reconciliation
type Fault struct {
	AccountID string `json:"account_id"`
	Error     string `json:"error"`
}

type ReconcileReport struct {
	Checked int     `json:"checked"`
	Faults  []Fault `json:"faults"`
}

// Reconciler sweeps every wallet through Recompute on a worker pool
type Reconciler struct {
	txRunner   persistence.TxRunner
	recomputer Recomputer
	pool       *ants.Pool
	logger     *slog.Logger
}

func NewReconciler(txRunner persistence.TxRunner, recomputer Recomputer, poolSize int, logger *slog.Logger) (*Reconciler, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		txRunner:   txRunner,
		recomputer: recomputer,
		pool:       pool,
		logger:     logger,
	}, nil
}

// ReconcileAll recomputes every wallet and reports the ones that do not match
func (r *Reconciler) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Faults: []Fault{}}
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(accountID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Checked++
		if err != nil {
			report.Faults = append(report.Faults, Fault{AccountID: accountID, Error: err.Error()})
		}
	}

	for offset := 0; ; offset += reconcilePageSize {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return report, err
		}

		ids, err := r.txRunner.Reader().Wallets().ListAccountIDs(ctx, reconcilePageSize, offset)
		if err != nil {
			wg.Wait()
			return report, fmt.Errorf("failed to list wallets at offset %d: %w", offset, err)
		}

		for _, id := range ids {
			accountID := id
			wg.Add(1)
			submitErr := r.pool.Submit(func() {
				defer wg.Done()
				_, err := r.recomputer.Recompute(ctx, accountID)
				record(accountID, err)
			})
			if submitErr != nil {
				wg.Done()
				record(accountID, submitErr)
			}
		}

		if len(ids) < reconcilePageSize {
			break
		}
	}

	wg.Wait()
	r.logger.Info("Reconciliation sweep finished", "checked", report.Checked, "faults", len(report.Faults))
	return report, nil
}

// Shutdown releases the worker pool
func (r *Reconciler) Shutdown() {
	r.logger.Info("Shutting down reconciliation pool", "running_workers", r.pool.Running())
	r.pool.Release()
}
