package memory

import (
	"context"
	"sort"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EntryRepository implements the append-only ledger.Repository in memory
type EntryRepository struct {
	scope scope
}

func (r *EntryRepository) WithTx(_ pgx.Tx) ledger.Repository {
	return r
}

func (r *EntryRepository) Append(_ context.Context, e *ledger.Entry) error {
	defer r.scope.lock()()
	st := r.scope.state()

	if e.IdempotencyKey != "" {
		if _, exists := st.entryByKey[e.IdempotencyKey]; exists {
			return ledger.ErrDuplicateEntry{IdempotencyKey: e.IdempotencyKey}
		}
	}

	stored := *e
	st.entries = append(st.entries, &stored)
	st.entryByID[stored.ID] = &stored
	if stored.IdempotencyKey != "" {
		st.entryByKey[stored.IdempotencyKey] = &stored
	}
	return nil
}

func (r *EntryRepository) GetByID(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	defer r.scope.lock()()

	e, ok := r.scope.state().entryByID[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound{ID: id}
	}
	cp := *e
	return &cp, nil
}

func (r *EntryRepository) GetByIdempotencyKey(_ context.Context, idempotencyKey string) (*ledger.Entry, error) {
	defer r.scope.lock()()

	e, ok := r.scope.state().entryByKey[idempotencyKey]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// ListByAccount walks the log backwards, newest first
func (r *EntryRepository) ListByAccount(_ context.Context, accountID string, q ledger.PageQuery) ([]*ledger.Entry, error) {
	defer r.scope.lock()()

	var matched []*ledger.Entry
	for _, e := range r.scope.state().entries {
		if e.AccountID != accountID {
			continue
		}
		if q.Before != nil && !q.Before.Precedes(e) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerThan(matched[i], matched[j])
	})
	return page(matched, ledger.ClampLimit(q.Limit), 0), nil
}

func (r *EntryRepository) ListByReference(_ context.Context, referenceID string) ([]*ledger.Entry, error) {
	defer r.scope.lock()()

	var matched []*ledger.Entry
	for _, e := range r.scope.state().entries {
		if e.ReferenceID == referenceID {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerThan(matched[j], matched[i])
	})
	return matched, nil
}

func (r *EntryRepository) Totals(_ context.Context, accountID string) (ledger.Totals, error) {
	defer r.scope.lock()()

	var entries []*ledger.Entry
	for _, e := range r.scope.state().entries {
		if e.AccountID == accountID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return newerThan(entries[j], entries[i])
	})

	var t ledger.Totals
	for _, e := range entries {
		t.Sum += e.Amount
		if e.Amount > 0 {
			t.Credits += e.Amount
		} else {
			t.Debits -= e.Amount
		}
		if e.BalanceAfter != t.Sum {
			t.Breaks++
		}
		t.Count++
	}
	return t, nil
}

// newerThan orders by (CreatedAt, ID) the same way the SQL store does
func newerThan(a, b *ledger.Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}
