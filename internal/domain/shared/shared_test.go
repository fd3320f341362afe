package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrInvariantViolation_Is(t *testing.T) {
	err := fmt.Errorf("append: %w", ErrInvariantViolation{AccountID: "acc-1", Reason: "negative balance"})

	assert.ErrorIs(t, err, ErrInvariantViolation{})
	assert.ErrorIs(t, err, ErrInvariantViolation{AccountID: "acc-1"})
	assert.False(t, errors.Is(err, ErrInvariantViolation{AccountID: "acc-2"}))
	assert.Contains(t, err.Error(), "negative balance")
}

func TestPurchaseRequest_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		req     PurchaseRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  PurchaseRequest{PurchaseID: "p-1", AccountID: "user-1", Coins: 100, Provider: PaymentProviderStoreKit},
		},
		{
			name:    "missing account",
			req:     PurchaseRequest{PurchaseID: "p-1", Coins: 100, Provider: PaymentProviderPayPal},
			wantErr: "account_id is required",
		},
		{
			name:    "zero coins and unknown provider",
			req:     PurchaseRequest{PurchaseID: "p-1", AccountID: "user-1", Provider: "stripe"},
			wantErr: "coins must be positive, provider must be storekit or paypal",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPurchase)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPurchaseRequest_Key(t *testing.T) {
	req := PurchaseRequest{PurchaseID: "txn-9", Provider: PaymentProviderPayPal}
	assert.Equal(t, "purchase:paypal:txn-9", req.Key())

	req.IdempotencyKey = "client-key"
	assert.Equal(t, "client-key", req.Key())
}
