package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CommissionRepository implements commission.Repository in memory
type CommissionRepository struct {
	scope scope
}

func (r *CommissionRepository) WithTx(_ pgx.Tx) commission.Repository {
	return r
}

// Upsert keeps the id, creator and active flag of an existing (course, trainer)
// record, and its notes when none are given
func (r *CommissionRepository) Upsert(_ context.Context, c *commission.CourseCommission) (*commission.CourseCommission, error) {
	defer r.scope.lock()()
	st := r.scope.state()

	for _, existing := range st.commissions {
		if existing.CourseID == c.CourseID && existing.TrainerID == c.TrainerID {
			existing.CommissionPercent = c.CommissionPercent
			if c.Notes != "" {
				existing.Notes = c.Notes
			}
			existing.UpdatedBy = c.UpdatedBy
			existing.UpdatedAt = c.UpdatedAt
			cp := *existing
			return &cp, nil
		}
	}

	stored := *c
	st.commissions[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (r *CommissionRepository) GetByID(_ context.Context, id uuid.UUID) (*commission.CourseCommission, error) {
	defer r.scope.lock()()

	c, ok := r.scope.state().commissions[id]
	if !ok {
		return nil, commission.ErrCommissionNotFound{ID: id}
	}
	cp := *c
	return &cp, nil
}

func (r *CommissionRepository) SetActive(_ context.Context, id uuid.UUID, isActive bool, adminID string) (*commission.CourseCommission, error) {
	defer r.scope.lock()()

	c, ok := r.scope.state().commissions[id]
	if !ok {
		return nil, commission.ErrCommissionNotFound{ID: id}
	}
	c.IsActive = isActive
	c.UpdatedBy = adminID
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (r *CommissionRepository) ListByCourse(_ context.Context, courseID string) ([]*commission.CourseCommission, error) {
	defer r.scope.lock()()

	var out []*commission.CourseCommission
	for _, c := range r.scope.state().commissions {
		if c.CourseID == courseID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrainerID < out[j].TrainerID })
	return out, nil
}
