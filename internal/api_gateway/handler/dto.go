package handler

import (
	"time"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/wallet"
)

// IdempotencyKeyHeader carries the caller's idempotency key; it wins over the body field
const IdempotencyKeyHeader = "Idempotency-Key"

// ChargeRequest is a debit for a course unlock, booking, plan or review
type ChargeRequest struct {
	Kind           string `json:"kind" binding:"required,oneof=course_unlock booking plan review"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID    string `json:"reference_id"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RefundRequest reverses a prior debit entry
type RefundRequest struct {
	EntryID        string `json:"entry_id" binding:"required,uuid"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RedeemRequest carries the code typed by the user
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// SaleRequest is a coin-funded course purchase with trainer payouts
type SaleRequest struct {
	BuyerID        string `json:"buyer_id" binding:"required"`
	CourseID       string `json:"course_id" binding:"required"`
	Coins          int64  `json:"coins" binding:"required,gt=0"`
	PriceEUR       string `json:"price_eur"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PurchaseCallbackRequest is the payment provider's confirmation of a coin package purchase
type PurchaseCallbackRequest struct {
	PurchaseID string `json:"purchase_id" binding:"required"`
	AccountID  string `json:"account_id" binding:"required"`
	Coins      int64  `json:"coins" binding:"required,gt=0"`
	PriceEUR   string `json:"price_eur" binding:"required"`
	Provider   string `json:"provider" binding:"required,oneof=storekit paypal"`
}

// AdjustRequest is a signed admin correction
type AdjustRequest struct {
	Delta          int64  `json:"delta" binding:"required"`
	Note           string `json:"note" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AwardRequest credits a promotion or referral bonus
type AwardRequest struct {
	Type           string `json:"type" binding:"required,oneof=promotion referral"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID    string `json:"reference_id"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreateKeyRequest issues a redemption key; an empty code is generated
type CreateKeyRequest struct {
	Code         string `json:"code"`
	CoinAmount   int64  `json:"coin_amount" binding:"required,gt=0"`
	MaxUses      int    `json:"max_uses" binding:"min=0"`
	ExpiresInSec *int64 `json:"expires_in_seconds,omitempty"`
}

// SetCommissionRequest creates or updates a course/trainer share
type SetCommissionRequest struct {
	CourseID  string `json:"course_id" binding:"required"`
	TrainerID string `json:"trainer_id" binding:"required"`
	Percent   int    `json:"commission_percent" binding:"min=0,max=100"`
	Notes     string `json:"notes"`
}

// SetCommissionActiveRequest toggles a commission without deleting it
type SetCommissionActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// CursorParams pages through ledger history
type CursorParams struct {
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Cursor string `form:"cursor"`
}

// PaginationParams represents pagination parameters for offset listings
type PaginationParams struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	AccountID        string `json:"account_id"`
	Balance          int64  `json:"balance"`
	TotalEarned      int64  `json:"total_earned"`
	TotalSpent       int64  `json:"total_spent"`
	LastDailyBonusAt string `json:"last_daily_bonus_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	ReferenceID  string `json:"reference_id,omitempty"`
	Note         string `json:"note,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// OperationResponse is the wallet and the entries one operation wrote
type OperationResponse struct {
	Wallet  WalletResponse  `json:"wallet"`
	Entries []EntryResponse `json:"entries"`
}

// DailyBonusResponse reports whether today's bonus was credited
type DailyBonusResponse struct {
	Claimed bool           `json:"claimed"`
	Wallet  WalletResponse `json:"wallet"`
	Entry   *EntryResponse `json:"entry,omitempty"`
}

// RedeemResponse is the outcome of a successful redemption
type RedeemResponse struct {
	Credited      int64          `json:"credited"`
	Code          string         `json:"code"`
	RemainingUses int            `json:"remaining_uses"`
	Wallet        WalletResponse `json:"wallet"`
	Entry         EntryResponse  `json:"entry"`
}

// SaleResponse is the outcome of a course sale
type SaleResponse struct {
	OperationResponse
	Payouts  interface{} `json:"payouts"`
	Retained int64       `json:"retained"`
	Cashback int64       `json:"cashback"`
}

// PurchaseAcceptedResponse is returned when a purchase was queued for crediting
type PurchaseAcceptedResponse struct {
	PurchaseID string `json:"purchase_id"`
	Status     string `json:"status"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	if w == nil {
		return WalletResponse{}
	}
	resp := WalletResponse{
		AccountID:   w.AccountID,
		Balance:     w.Balance,
		TotalEarned: w.TotalEarned,
		TotalSpent:  w.TotalSpent,
		UpdatedAt:   formatTime(w.UpdatedAt),
	}
	if w.LastDailyBonusAt != nil {
		resp.LastDailyBonusAt = formatTime(*w.LastDailyBonusAt)
	}
	return resp
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:           e.ID.String(),
		AccountID:    e.AccountID,
		Type:         string(e.Type),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		ReferenceID:  e.ReferenceID,
		Note:         e.Note,
		CreatedAt:    formatTime(e.CreatedAt),
	}
}

func mapEntriesToResponse(entries []*ledger.Entry) []EntryResponse {
	resp := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, mapEntryToResponse(e))
	}
	return resp
}
