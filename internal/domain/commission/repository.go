package commission

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists course commissions. Records are deactivated, never deleted.
type Repository interface {
	// Upsert creates the record for (CourseID, TrainerID) or updates the existing one,
	// returning the stored row
	Upsert(ctx context.Context, c *CourseCommission) (*CourseCommission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CourseCommission, error)
	SetActive(ctx context.Context, id uuid.UUID, isActive bool, adminID string) (*CourseCommission, error)
	ListByCourse(ctx context.Context, courseID string) ([]*CourseCommission, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrCommissionNotFound indicates missing commission record
type ErrCommissionNotFound struct {
	ID uuid.UUID
}

func (e ErrCommissionNotFound) Error() string {
	return "commission not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrCommissionNotFound
func (e ErrCommissionNotFound) Is(target error) bool {
	t, ok := target.(ErrCommissionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
