package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	"github.com/dancecoin-ledger/internal/api_gateway/service"
	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// CommerceHandler serves pricing, course sales and payment provider callbacks
type CommerceHandler struct {
	logger    *slog.Logger
	ledger    coinledger.LedgerService
	purchases service.PurchaseService
}

// NewCommerceHandler creates a new commerce handler
func NewCommerceHandler(logger *slog.Logger, ledger coinledger.LedgerService, purchases service.PurchaseService) *CommerceHandler {
	return &CommerceHandler{
		logger:    logger,
		ledger:    ledger,
		purchases: purchases,
	}
}

// Quote handles GET /pricing/quote?price_eur=
func (h *CommerceHandler) Quote(c *gin.Context) {
	quote, err := h.ledger.Quote(c.Query("price_eur"))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	RespondOK(c, quote)
}

// RecordSale handles POST /sales
func (h *CommerceHandler) RecordSale(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if !middleware.CanActFor(c, req.BuyerID) {
		middleware.Forbid(c, "Not allowed to charge this buyer")
		return
	}

	result, err := h.ledger.RecordSaleAndPayout(c.Request.Context(), coinledger.SaleRequest{
		BuyerID:        req.BuyerID,
		CourseID:       req.CourseID,
		Coins:          req.Coins,
		PriceEUR:       req.PriceEUR,
		Note:           req.Note,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		respondError(c, h.logger.With("correlation_id", middleware.GetCorrelationID(c)), "record_sale", err)
		return
	}

	data := SaleResponse{
		OperationResponse: OperationResponse{
			Wallet:  mapWalletToResponse(result.Wallet),
			Entries: mapEntriesToResponse(result.Entries),
		},
		Payouts:  result.Payouts,
		Retained: result.Retained,
		Cashback: result.Cashback,
	}
	if result.Replayed {
		RespondWithMeta(c, http.StatusOK, data, &MetaInfo{Replayed: true})
		return
	}
	RespondCreated(c, data)
}

// PurchaseCallback handles POST /purchases. The credit happens in the ledger
// worker; a purchase already on the ledger is answered with its entry.
func (h *CommerceHandler) PurchaseCallback(c *gin.Context) {
	var req PurchaseCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	purchase := &shared.PurchaseRequest{
		PurchaseID:     req.PurchaseID,
		AccountID:      req.AccountID,
		Coins:          req.Coins,
		PriceEUR:       req.PriceEUR,
		Provider:       shared.PaymentProvider(req.Provider),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
		CorrelationID:  correlationID,
		Timestamp:      time.Now().UTC(),
	}

	entry, err := h.purchases.SubmitPurchase(c.Request.Context(), purchase)
	if err != nil {
		respondError(c, h.logger.With("correlation_id", correlationID), "submit_purchase", err)
		return
	}
	if entry != nil {
		RespondWithMeta(c, http.StatusOK, mapEntryToResponse(entry), &MetaInfo{Replayed: true})
		return
	}
	RespondAccepted(c, PurchaseAcceptedResponse{PurchaseID: req.PurchaseID, Status: "accepted"})
}
