package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dancecoin-ledger/internal/api_gateway/handler"
	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	"github.com/dancecoin-ledger/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// handlers groups the route handlers wired by setupRouter
type handlers struct {
	wallets  *handler.WalletHandler
	commerce *handler.CommerceHandler
	admin    *handler.AdminHandler
	events   *handler.EventsHandler // nil without Redis
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers, collector *metrics.Collector) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Actor())
	r.Use(middleware.Logger(logger))
	if collector != nil {
		r.Use(collector.Middleware())
	}

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet operations, only on the caller's own wallet
		wallets := v1.Group("/wallets/:accountId", middleware.RequireAccountOwner("accountId"))
		{
			wallets.GET("", h.wallets.Get)
			wallets.GET("/entries", h.wallets.Entries)
			wallets.GET("/activity", h.wallets.Activity)
			wallets.POST("/daily-bonus", h.wallets.ClaimDailyBonus)
			wallets.POST("/charges", h.wallets.Charge)
			wallets.POST("/redemptions", h.wallets.Redeem)
			if h.events != nil {
				wallets.GET("/events", h.events.Stream)
			}
		}

		v1.GET("/pricing/quote", h.commerce.Quote)
		// The buyer, or an admin, records a sale; checked by the handler
		v1.POST("/sales", h.commerce.RecordSale)

		// Payment provider callbacks
		v1.POST("/purchases", middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin), h.commerce.PurchaseCallback)

		admin := v1.Group("/admin", middleware.RequireAdmin())
		{
			admin.POST("/wallets/:accountId/adjustments", h.admin.Adjust)
			admin.POST("/wallets/:accountId/awards", h.admin.Award)
			admin.POST("/wallets/:accountId/recompute", h.admin.Recompute)
			admin.POST("/wallets/:accountId/refunds", h.wallets.Refund)
			admin.POST("/reconcile", h.admin.Reconcile)
			admin.POST("/keys", h.admin.CreateKey)
			admin.GET("/keys", h.admin.ListKeys)
			admin.PUT("/commissions", h.admin.SetCommission)
			admin.PATCH("/commissions/:id", h.admin.SetCommissionActive)
			admin.GET("/courses/:courseId/commissions", h.admin.ListCommissions)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if collector != nil {
		r.GET("/metrics", collector.Handler())
	}
}
