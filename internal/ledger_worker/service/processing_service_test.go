package service

import (
	"context"
	"errors"
	"testing"

	coinledger "github.com/dancecoin-ledger/internal/coin_ledger/service"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProcessingService_ProcessPurchase(t *testing.T) {
	credited := &coinledger.Result{Wallet: &wallet.Wallet{AccountID: "alice", Balance: 100}}

	tests := []struct {
		name         string
		request      func() *shared.PurchaseRequest
		setupMocks   func(m *MockPurchaseCreditor)
		wantRejected bool
		wantErr      bool
	}{
		{
			name:    "credits purchase",
			request: validPurchase,
			setupMocks: func(m *MockPurchaseCreditor) {
				m.On("CreditPurchase", mock.Anything, validPurchase()).Return(credited, nil).Once()
			},
		},
		{
			name:    "redelivered purchase is a replay",
			request: validPurchase,
			setupMocks: func(m *MockPurchaseCreditor) {
				replayed := *credited
				replayed.Replayed = true
				m.On("CreditPurchase", mock.Anything, mock.Anything).Return(&replayed, nil).Once()
			},
		},
		{
			name: "invalid purchase never reaches the ledger",
			request: func() *shared.PurchaseRequest {
				r := validPurchase()
				r.Coins = 0
				return r
			},
			setupMocks:   func(m *MockPurchaseCreditor) {},
			wantRejected: true,
			wantErr:      true,
		},
		{
			name:    "reused key is rejected",
			request: validPurchase,
			setupMocks: func(m *MockPurchaseCreditor) {
				m.On("CreditPurchase", mock.Anything, mock.Anything).Return(nil, shared.ErrIdempotencyConflict).Once()
			},
			wantRejected: true,
			wantErr:      true,
		},
		{
			name:    "indeterminate outcome is retried",
			request: validPurchase,
			setupMocks: func(m *MockPurchaseCreditor) {
				m.On("CreditPurchase", mock.Anything, mock.Anything).Return(nil, shared.ErrIndeterminate).Once()
			},
			wantErr: true,
		},
		{
			name:    "store error is retried",
			request: validPurchase,
			setupMocks: func(m *MockPurchaseCreditor) {
				m.On("CreditPurchase", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creditor := &MockPurchaseCreditor{}
			tt.setupMocks(creditor)
			svc := NewProcessingService(creditor, newTestLogger())

			err := svc.ProcessPurchase(context.Background(), tt.request())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRejected, errors.Is(err, ErrRejected))
			creditor.AssertExpectations(t)
		})
	}
}
