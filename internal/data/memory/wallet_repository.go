package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dancecoin-ledger/internal/domain/wallet"
	"github.com/jackc/pgx/v5"
)

// WalletRepository implements wallet.Repository in memory
type WalletRepository struct {
	scope scope
}

func (r *WalletRepository) WithTx(_ pgx.Tx) wallet.Repository {
	return r
}

// GetOrCreateForUpdate returns a copy of the wallet, creating it on first use.
// The store mutex held by the transaction stands in for the row lock.
func (r *WalletRepository) GetOrCreateForUpdate(_ context.Context, accountID string) (*wallet.Wallet, error) {
	defer r.scope.lock()()
	st := r.scope.state()

	w, ok := st.wallets[accountID]
	if !ok {
		w = wallet.New(accountID, time.Now().UTC())
		st.wallets[accountID] = w
	}
	return w.Clone(), nil
}

func (r *WalletRepository) GetByAccountID(_ context.Context, accountID string) (*wallet.Wallet, error) {
	defer r.scope.lock()()

	w, ok := r.scope.state().wallets[accountID]
	if !ok {
		return nil, wallet.ErrWalletNotFound{AccountID: accountID}
	}
	return w.Clone(), nil
}

// Update stores w when the held version is exactly one behind it
func (r *WalletRepository) Update(_ context.Context, w *wallet.Wallet) error {
	defer r.scope.lock()()
	st := r.scope.state()

	current, ok := st.wallets[w.AccountID]
	if !ok || current.Version != w.Version-1 {
		return wallet.ErrConcurrentModification{AccountID: w.AccountID}
	}
	st.wallets[w.AccountID] = w.Clone()
	return nil
}

func (r *WalletRepository) ListAccountIDs(_ context.Context, limit, offset int) ([]string, error) {
	defer r.scope.lock()()

	ids := make([]string, 0, len(r.scope.state().wallets))
	for id := range r.scope.state().wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return page(ids, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
