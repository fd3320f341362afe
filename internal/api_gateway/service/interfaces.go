package service

import (
	"context"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
)

// PurchaseService accepts captured coin purchases from payment provider callbacks
type PurchaseService interface {
	// SubmitPurchase returns the purchase entry when the purchase was already
	// credited; otherwise it hands the purchase to the ledger worker and returns nil.
	SubmitPurchase(ctx context.Context, request *shared.PurchaseRequest) (*ledger.Entry, error)
}

// ActivityService serves the recent activity feed shown in the app
type ActivityService interface {
	// Recent returns the newest entries of the account, at most limit
	Recent(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error)
}
