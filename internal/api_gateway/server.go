package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dancecoin-ledger/internal/api_gateway/handler"
	"github.com/dancecoin-ledger/internal/api_gateway/service"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/config"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services behind the HTTP API
type Dependencies struct {
	Ledger     coinledger.LedgerService
	Reconciler handler.Reconciler // nil disables /admin/reconcile
	Purchases  service.PurchaseService
	Activity   service.ActivityService
	Watcher    handler.BalanceWatcher // nil disables the events stream
	Metrics    *metrics.Collector
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	h := handlers{
		wallets:  handler.NewWalletHandler(log, deps.Ledger, deps.Activity),
		commerce: handler.NewCommerceHandler(log, deps.Ledger, deps.Purchases),
		admin:    handler.NewAdminHandler(log, deps.Ledger, deps.Reconciler),
	}
	if deps.Watcher != nil {
		h.events = handler.NewEventsHandler(log, deps.Watcher)
	}

	setupRouter(log, httpRouter, h, deps.Metrics)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router for in-process tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
