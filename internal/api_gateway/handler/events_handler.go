package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
)

const defaultHeartbeat = 15 * time.Second

// BalanceWatcher delivers balance changes of one account until ctx ends
type BalanceWatcher interface {
	Watch(ctx context.Context, accountID string, ready chan<- struct{}, handler func(ledger.BalanceChangedEvent)) error
}

// EventsHandler streams live balance changes to the app over server-sent events
type EventsHandler struct {
	logger    *slog.Logger
	watcher   BalanceWatcher
	heartbeat time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(logger *slog.Logger, watcher BalanceWatcher) *EventsHandler {
	return &EventsHandler{
		logger:    logger,
		watcher:   watcher,
		heartbeat: defaultHeartbeat,
	}
}

// Stream handles GET /wallets/:accountId/events
func (h *EventsHandler) Stream(c *gin.Context) {
	accountID := c.Param("accountId")
	logger := h.logger.With("correlation_id", middleware.GetCorrelationID(c), "account_id", accountID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := make(chan ledger.BalanceChangedEvent, 16)
	ready := make(chan struct{})
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- h.watcher.Watch(ctx, accountID, ready, func(event ledger.BalanceChangedEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
	}()

	select {
	case <-ready:
	case err := <-watchErr:
		logger.Error("Failed to watch balance changes", "error", err)
		RespondWithError(c, http.StatusServiceUnavailable, "EVENTS_UNAVAILABLE", "Live updates are unavailable, please try again later")
		return
	case <-ctx.Done():
		return
	}

	// Streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("ready", gin.H{"account_id": accountID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			c.SSEvent("balance", event)
			return true
		case t := <-heartbeat.C:
			c.SSEvent("ping", t.Unix())
			return true
		case err := <-watchErr:
			if err != nil {
				logger.Warn("Balance watch ended", "error", err)
			}
			return false
		case <-ctx.Done():
			return false
		}
	})
}
