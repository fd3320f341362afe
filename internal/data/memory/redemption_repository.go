package memory

import (
	"context"
	"sort"

	"github.com/dancecoin-ledger/internal/domain/redemption"
	"github.com/jackc/pgx/v5"
)

// RedemptionKeyRepository implements redemption.Repository in memory
type RedemptionKeyRepository struct {
	scope scope
}

func (r *RedemptionKeyRepository) WithTx(_ pgx.Tx) redemption.Repository {
	return r
}

func (r *RedemptionKeyRepository) Create(_ context.Context, k *redemption.Key) error {
	defer r.scope.lock()()
	st := r.scope.state()

	if _, exists := st.keys[k.Code]; exists {
		return &redemption.Error{Kind: redemption.KindDuplicateCode, Code: k.Code}
	}
	cp := *k
	st.keys[k.Code] = &cp
	return nil
}

func (r *RedemptionKeyRepository) GetByCode(_ context.Context, code string) (*redemption.Key, error) {
	defer r.scope.lock()()

	k, ok := r.scope.state().keys[code]
	if !ok {
		return nil, &redemption.Error{Kind: redemption.KindNotFound, Code: code}
	}
	cp := *k
	return &cp, nil
}

func (r *RedemptionKeyRepository) GetByCodeForUpdate(ctx context.Context, code string) (*redemption.Key, error) {
	return r.GetByCode(ctx, code)
}

func (r *RedemptionKeyRepository) IncrementUses(_ context.Context, k *redemption.Key) error {
	defer r.scope.lock()()

	stored, ok := r.scope.state().keys[k.Code]
	if !ok {
		return &redemption.Error{Kind: redemption.KindNotFound, Code: k.Code}
	}
	if stored.CurrentUses >= stored.MaxUses {
		return &redemption.Error{Kind: redemption.KindExhausted, Code: k.Code}
	}
	stored.CurrentUses++
	k.CurrentUses = stored.CurrentUses
	return nil
}

func (r *RedemptionKeyRepository) List(_ context.Context, limit, offset int) ([]*redemption.Key, error) {
	defer r.scope.lock()()

	keys := make([]*redemption.Key, 0, len(r.scope.state().keys))
	for _, k := range r.scope.state().keys {
		cp := *k
		keys = append(keys, &cp)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].CreatedAt.After(keys[j].CreatedAt)
		}
		return keys[i].ID.String() > keys[j].ID.String()
	})
	return page(keys, limit, offset), nil
}
