package shared

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidPurchase = errors.New("invalid coin purchase")
)

// PurchaseRequest is the Kafka message emitted once a payment provider captured
// the money for a coin package
type PurchaseRequest struct {
	PurchaseID     string          `json:"purchase_id"`
	AccountID      string          `json:"account_id"`
	Coins          int64           `json:"coins"`
	PriceEUR       string          `json:"price_eur,omitempty"`
	Provider       PaymentProvider `json:"provider"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CorrelationID  string          `json:"correlation_id"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Key returns the idempotency key of the purchase, defaulting to the provider reference
func (r *PurchaseRequest) Key() string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	return "purchase:" + string(r.Provider) + ":" + r.PurchaseID
}

// Validate checks the fields a purchase credit needs
func (r *PurchaseRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.PurchaseID) == "" {
		problems = append(problems, "purchase_id is required")
	}
	if strings.TrimSpace(r.AccountID) == "" {
		problems = append(problems, "account_id is required")
	}
	if r.Coins <= 0 {
		problems = append(problems, "coins must be positive")
	}
	if !r.Provider.Valid() {
		problems = append(problems, "provider must be storekit or paypal")
	}
	if len(problems) > 0 {
		return errors.Join(ErrInvalidPurchase, errors.New(strings.Join(problems, ", ")))
	}
	return nil
}
