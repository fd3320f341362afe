package components

import (
	"log/slog"

	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/ledger_worker/outbox_poller"
	"github.com/dancecoin-ledger/internal/ledger_worker/service"
	"github.com/dancecoin-ledger/internal/platform/metrics"
)

// CreateProcessingService creates the purchase processing service, bounded by
// the configured worker pool.
func CreateProcessingService(
	creditor service.PurchaseCreditor,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	baseService := service.NewProcessingService(creditor, logger.With("component", "processing_service"))

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}

// Sinks are the optional downstreams of committed entries. Nil fields are skipped.
type Sinks struct {
	History       ledger.HistoryRepository
	BalanceEvents outbox_poller.BalancePublisher // Kafka
	Notifier      outbox_poller.BalancePublisher // Redis
}

// CreateOutboxPoller wires the fan-out publisher and the poller that drains the outbox into it
func CreateOutboxPoller(
	outboxRepo outbox.Repository,
	sinks Sinks,
	collector *metrics.Collector,
	logger *slog.Logger,
	cfg *config.Config,
) *outbox_poller.Poller {
	var active []outbox_poller.Sink
	if sinks.History != nil {
		active = append(active, outbox_poller.NewHistorySink(sinks.History))
	}
	if sinks.BalanceEvents != nil {
		active = append(active, outbox_poller.NewBalanceEventSink("kafka", sinks.BalanceEvents))
	}
	if sinks.Notifier != nil {
		active = append(active, outbox_poller.NewBalanceEventSink("redis", sinks.Notifier))
	}

	names := make([]string, 0, len(active))
	for _, s := range active {
		names = append(names, s.Name())
	}
	logger.Info("Created outbox fan-out", "sinks", names)

	var deliveryMetrics outbox_poller.DeliveryMetrics
	if collector != nil {
		deliveryMetrics = collector
	}

	publisher := outbox_poller.NewFanOutPublisher(outboxRepo, active, deliveryMetrics, logger.With("component", "outbox_publisher"))
	return outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, publisher, logger.With("component", "outbox_poller"))
}
