package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService caps how many purchases are credited at once.
// Callers block until their purchase has a result or their context ends.
type WorkerPoolProcessingService struct {
	next     ProcessingService
	pool     *ants.Pool
	inFlight atomic.Int64
	logger   *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	next ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	// ants treats a non-positive size as unbounded
	if config.Size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", config.Size)
	}
	pool, err := ants.NewPool(config.Size, ants.WithExpiryDuration(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool of size %d: %w", config.Size, err)
	}
	return &WorkerPoolProcessingService{
		next:   next,
		pool:   pool,
		logger: logger,
	}, nil
}

func (s *WorkerPoolProcessingService) ProcessPurchase(ctx context.Context, request *shared.PurchaseRequest) error {
	logger := s.logger.With("purchase_id", request.PurchaseID, "account_id", request.AccountID)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	// The worker may outlive a caller that gave up, so it owns its copy
	purchase := *request
	done := make(chan error, 1)

	s.inFlight.Add(1)
	err := s.pool.Submit(func() {
		defer s.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Purchase worker panicked", "panic", r)
				done <- fmt.Errorf("purchase %s: worker panicked: %v", purchase.PurchaseID, r)
			}
		}()
		done <- s.next.ProcessPurchase(ctx, &purchase)
	})
	if err != nil {
		s.inFlight.Add(-1)
		logger.Error("Failed to submit coin purchase to worker pool", "error", err)
		return fmt.Errorf("failed to schedule purchase %s: %w", purchase.PurchaseID, err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Warn("Caller stopped waiting for purchase result", "error", ctx.Err())
		return ctx.Err()
	}
}

// InFlight counts purchases scheduled but not yet finished
func (s *WorkerPoolProcessingService) InFlight() int {
	return int(s.inFlight.Load())
}

func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running(), "in_flight", s.InFlight())
	s.pool.Release()
}

func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
