package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Reconciler sweeps every wallet against its ledger
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*coinledger.ReconcileReport, error)
}

// AdminHandler serves the admin endpoints. Callers are checked by middleware.RequireAdmin.
type AdminHandler struct {
	logger     *slog.Logger
	ledger     coinledger.LedgerService
	reconciler Reconciler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, ledger coinledger.LedgerService, reconciler Reconciler) *AdminHandler {
	return &AdminHandler{
		logger:     logger,
		ledger:     ledger,
		reconciler: reconciler,
	}
}

func (h *AdminHandler) requestLogger(c *gin.Context) *slog.Logger {
	return h.logger.With(
		"correlation_id", middleware.GetCorrelationID(c),
		"admin_id", middleware.GetActorID(c),
	)
}

// Adjust handles POST /admin/wallets/:accountId/adjustments
func (h *AdminHandler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ledger.AdminAdjust(c.Request.Context(), coinledger.AdjustRequest{
		AccountID:      c.Param("accountId"),
		Delta:          req.Delta,
		Note:           req.Note,
		ActorID:        middleware.GetActorID(c),
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		respondError(c, h.requestLogger(c), "admin_adjust", err)
		return
	}
	h.requestLogger(c).Info("Wallet adjusted by admin", "account_id", c.Param("accountId"), "delta", req.Delta)
	respondResult(c, result)
}

// Award handles POST /admin/wallets/:accountId/awards
func (h *AdminHandler) Award(c *gin.Context) {
	var req AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ledger.Award(c.Request.Context(), coinledger.AwardRequest{
		AccountID:      c.Param("accountId"),
		Type:           ledger.EntryType(req.Type),
		Amount:         req.Amount,
		ReferenceID:    req.ReferenceID,
		Note:           req.Note,
		ActorID:        middleware.GetActorID(c),
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		respondError(c, h.requestLogger(c), "award", err)
		return
	}
	respondResult(c, result)
}

// Recompute handles POST /admin/wallets/:accountId/recompute. A mismatch is
// reported in the body; the wallet is never corrected automatically.
func (h *AdminHandler) Recompute(c *gin.Context) {
	recon, err := h.ledger.Recompute(c.Request.Context(), c.Param("accountId"))
	if err != nil && !(recon != nil && errors.Is(err, shared.ErrInvariantViolation{})) {
		respondError(c, h.requestLogger(c), "recompute", err)
		return
	}
	if err != nil {
		h.requestLogger(c).Warn("Wallet does not match its ledger", "account_id", c.Param("accountId"), "error", err)
	}
	RespondOK(c, recon)
}

// Reconcile handles POST /admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	if h.reconciler == nil {
		RespondWithError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Reconciliation is not enabled")
		return
	}

	report, err := h.reconciler.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, h.requestLogger(c), "reconcile", err)
		return
	}
	if len(report.Faults) > 0 {
		h.requestLogger(c).Warn("Reconciliation found faults", "checked", report.Checked, "faults", len(report.Faults))
	}
	RespondOK(c, report)
}

// CreateKey handles POST /admin/keys
func (h *AdminHandler) CreateKey(c *gin.Context) {
	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var expiresIn *time.Duration
	if req.ExpiresInSec != nil {
		d := time.Duration(*req.ExpiresInSec) * time.Second
		expiresIn = &d
	}

	key, err := h.ledger.CreateKey(c.Request.Context(), coinledger.CreateKeyRequest{
		Code:       req.Code,
		CoinAmount: req.CoinAmount,
		MaxUses:    req.MaxUses,
		ExpiresIn:  expiresIn,
		CreatedBy:  middleware.GetActorID(c),
	})
	if err != nil {
		respondError(c, h.requestLogger(c), "create_key", err)
		return
	}
	RespondCreated(c, key)
}

// ListKeys handles GET /admin/keys
func (h *AdminHandler) ListKeys(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	keys, err := h.ledger.ListKeys(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		respondError(c, h.requestLogger(c), "list_keys", err)
		return
	}
	RespondWithMeta(c, http.StatusOK, keys, &MetaInfo{Limit: params.Limit, Offset: params.Offset})
}

// SetCommission handles PUT /admin/commissions
func (h *AdminHandler) SetCommission(c *gin.Context) {
	var req SetCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ledger.SetCommission(c.Request.Context(), coinledger.SetCommissionRequest{
		CourseID:  req.CourseID,
		TrainerID: req.TrainerID,
		Percent:   req.Percent,
		AdminID:   middleware.GetActorID(c),
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(c, h.requestLogger(c), "set_commission", err)
		return
	}
	RespondWithMeta(c, http.StatusOK, result.Commission, &MetaInfo{Warning: result.Warning})
}

// SetCommissionActive handles PATCH /admin/commissions/:id
func (h *AdminHandler) SetCommissionActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid commission ID format")
		return
	}
	var req SetCommissionActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ledger.SetCommissionActive(c.Request.Context(), id, *req.IsActive, middleware.GetActorID(c))
	if err != nil {
		respondError(c, h.requestLogger(c), "set_commission_active", err)
		return
	}
	RespondWithMeta(c, http.StatusOK, result.Commission, &MetaInfo{Warning: result.Warning})
}

// ListCommissions handles GET /admin/courses/:courseId/commissions
func (h *AdminHandler) ListCommissions(c *gin.Context) {
	commissions, err := h.ledger.ListCommissions(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, h.requestLogger(c), "list_commissions", err)
		return
	}
	RespondOK(c, commissions)
}
