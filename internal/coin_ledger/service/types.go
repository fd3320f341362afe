package service

import (
	"time"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/google/uuid"
)

// Posting is one balance movement before it becomes an entry.
// Amount is the unsigned magnitude; the entry type decides the sign.
type Posting struct {
	Type           ledger.EntryType
	Amount         int64
	ReferenceID    string
	Note           string
	IdempotencyKey string
	ActorID        string
	At             time.Time
}

// Result is the wallet after the operation and the entries it wrote.
// Replayed is set when the idempotency key had already been used.
type Result struct {
	Wallet   *wallet.Wallet  `json:"wallet"`
	Entries  []*ledger.Entry `json:"entries"`
	Replayed bool            `json:"replayed"`
}

type ChargeRequest struct {
	AccountID      string
	Amount         int64
	ReferenceID    string
	Note           string
	IdempotencyKey string
}

type RefundRequest struct {
	AccountID      string
	EntryID        uuid.UUID
	Note           string
	ActorID        string
	IdempotencyKey string
}

// AdjustRequest credits a positive Delta as adminGrant and debits a negative one as adminRemove
type AdjustRequest struct {
	AccountID      string
	Delta          int64
	Note           string
	ActorID        string
	IdempotencyKey string
}

// AwardRequest credits a promotion or referral bonus
type AwardRequest struct {
	AccountID      string
	Type           ledger.EntryType
	Amount         int64
	ReferenceID    string
	Note           string
	ActorID        string
	IdempotencyKey string
}

// CreateKeyRequest describes a redemption key; an empty Code is generated
type CreateKeyRequest struct {
	Code       string
	CoinAmount int64
	MaxUses    int
	ExpiresIn  *time.Duration
	CreatedBy  string
}

type RedeemResult struct {
	Result
	Key      *redemption.Key `json:"key"`
	Credited int64           `json:"credited"`
}

type SetCommissionRequest struct {
	CourseID  string
	TrainerID string
	Percent   int
	AdminID   string
	Notes     string
}

// CommissionResult carries the saved record and the advisory allocation warning
type CommissionResult struct {
	Commission *commission.CourseCommission `json:"commission"`
	Warning    string                       `json:"warning,omitempty"`
}

// SaleRequest is a coin-funded course purchase. PriceEUR, when given, is the
// list price used for cashback; otherwise the coins' euro value is used.
type SaleRequest struct {
	BuyerID        string
	CourseID       string
	Coins          int64
	PriceEUR       string
	Note           string
	IdempotencyKey string
}

// SaleState tracks the progress of one sale inside its transaction
type SaleState string

const (
	SaleInitiated        SaleState = "Initiated"
	SaleBalanceChecked   SaleState = "BalanceChecked"
	SaleDebited          SaleState = "Debited"
	SalePayoutsApplied   SaleState = "PayoutsApplied"
	SaleCashbackCredited SaleState = "CashbackCredited"
	SaleCompleted        SaleState = "Completed"
)

type SaleResult struct {
	Result
	Payouts  []commission.Payout `json:"payouts"`
	Retained int64               `json:"retained"`
	Cashback int64               `json:"cashback"`
	State    SaleState           `json:"state"`
}

type HistoryPage struct {
	Entries    []*ledger.Entry `json:"entries"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Reconciliation compares a wallet with the replay of its entries
type Reconciliation struct {
	AccountID  string         `json:"account_id"`
	Wallet     *wallet.Wallet `json:"wallet"`
	Totals     ledger.Totals  `json:"totals"`
	Consistent bool           `json:"consistent"`
}
