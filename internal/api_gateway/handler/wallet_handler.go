package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	"github.com/dancecoin-ledger/internal/api_gateway/service"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler serves the user facing wallet endpoints
type WalletHandler struct {
	logger   *slog.Logger
	ledger   coinledger.LedgerService
	activity service.ActivityService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, ledger coinledger.LedgerService, activity service.ActivityService) *WalletHandler {
	return &WalletHandler{
		logger:   logger,
		ledger:   ledger,
		activity: activity,
	}
}

func (h *WalletHandler) requestLogger(c *gin.Context) *slog.Logger {
	return h.logger.With("correlation_id", middleware.GetCorrelationID(c))
}

// idempotencyKey prefers the header over the body field
func idempotencyKey(c *gin.Context, fromBody string) string {
	if key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(fromBody)
}

// Get handles GET /wallets/:accountId
func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.ledger.GetWallet(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		respondError(c, h.requestLogger(c), "get_wallet", err)
		return
	}
	RespondOK(c, mapWalletToResponse(w))
}

// Entries handles GET /wallets/:accountId/entries
func (h *WalletHandler) Entries(c *gin.Context) {
	var params CursorParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid paging parameters: "+err.Error())
		return
	}

	page, err := h.ledger.History(c.Request.Context(), c.Param("accountId"), params.Limit, params.Cursor)
	if err != nil {
		respondError(c, h.requestLogger(c), "history", err)
		return
	}
	RespondWithMeta(c, http.StatusOK, mapEntriesToResponse(page.Entries), &MetaInfo{
		Limit:      params.Limit,
		NextCursor: page.NextCursor,
	})
}

// Activity handles GET /wallets/:accountId/activity
func (h *WalletHandler) Activity(c *gin.Context) {
	var params CursorParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid paging parameters: "+err.Error())
		return
	}

	entries, err := h.activity.Recent(c.Request.Context(), c.Param("accountId"), params.Limit)
	if err != nil {
		respondError(c, h.requestLogger(c), "activity", err)
		return
	}
	RespondWithMeta(c, http.StatusOK, mapEntriesToResponse(entries), &MetaInfo{Limit: params.Limit})
}

// ClaimDailyBonus handles POST /wallets/:accountId/daily-bonus. A second claim
// on the same day is not an error for the app, it just reports claimed=false.
func (h *WalletHandler) ClaimDailyBonus(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := c.Param("accountId")

	result, err := h.ledger.CreditDailyBonus(ctx, accountID)
	if errors.Is(err, shared.ErrAlreadyClaimedToday) {
		w, err := h.ledger.GetWallet(ctx, accountID)
		if err != nil {
			respondError(c, h.requestLogger(c), "get_wallet", err)
			return
		}
		RespondOK(c, DailyBonusResponse{Claimed: false, Wallet: mapWalletToResponse(w)})
		return
	}
	if err != nil {
		respondError(c, h.requestLogger(c), "daily_bonus", err)
		return
	}

	entry := mapEntryToResponse(result.Entries[0])
	RespondCreated(c, DailyBonusResponse{Claimed: true, Wallet: mapWalletToResponse(result.Wallet), Entry: &entry})
}

// Charge handles POST /wallets/:accountId/charges
func (h *WalletHandler) Charge(c *gin.Context) {
	var req ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	charge := coinledger.ChargeRequest{
		AccountID:      c.Param("accountId"),
		Amount:         req.Amount,
		ReferenceID:    req.ReferenceID,
		Note:           req.Note,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	}

	ctx := c.Request.Context()
	var (
		result *coinledger.Result
		err    error
	)
	switch req.Kind {
	case "course_unlock":
		result, err = h.ledger.ChargeCourseUnlock(ctx, charge)
	case "booking":
		result, err = h.ledger.ChargeBooking(ctx, charge)
	case "plan":
		result, err = h.ledger.ChargePlan(ctx, charge)
	default:
		result, err = h.ledger.ChargeReview(ctx, charge)
	}
	if err != nil {
		respondError(c, h.requestLogger(c), "charge_"+req.Kind, err)
		return
	}
	respondResult(c, result)
}

// Refund handles POST /admin/wallets/:accountId/refunds
func (h *WalletHandler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	entryID, err := uuid.Parse(req.EntryID)
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID format")
		return
	}

	result, err := h.ledger.Refund(c.Request.Context(), coinledger.RefundRequest{
		AccountID:      c.Param("accountId"),
		EntryID:        entryID,
		Note:           req.Note,
		ActorID:        middleware.GetActorID(c),
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		respondError(c, h.requestLogger(c), "refund", err)
		return
	}
	respondResult(c, result)
}

// Redeem handles POST /wallets/:accountId/redemptions
func (h *WalletHandler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ledger.RedeemKey(c.Request.Context(), req.Code, c.Param("accountId"))
	if err != nil {
		respondError(c, h.requestLogger(c), "redeem_key", err)
		return
	}
	RespondCreated(c, RedeemResponse{
		Credited:      result.Credited,
		Code:          result.Key.Code,
		RemainingUses: result.Key.RemainingUses(),
		Wallet:        mapWalletToResponse(result.Wallet),
		Entry:         mapEntryToResponse(result.Entries[0]),
	})
}

// respondResult answers 201 for a fresh write and 200 for a replay
func respondResult(c *gin.Context, result *coinledger.Result) {
	data := OperationResponse{
		Wallet:  mapWalletToResponse(result.Wallet),
		Entries: mapEntriesToResponse(result.Entries),
	}
	if result.Replayed {
		RespondWithMeta(c, http.StatusOK, data, &MetaInfo{Replayed: true})
		return
	}
	RespondCreated(c, data)
}
