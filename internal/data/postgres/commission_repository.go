package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancecoin-ledger/internal/domain/commission"
	"github.com/dancecoin-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const commissionColumns = `id, course_id, trainer_id, commission_percent, is_active, notes, created_by, updated_by, created_at, updated_at`

// CommissionRepository implements commission.Repository for PostgreSQL
type CommissionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCommissionRepository creates a new PostgreSQL commission repository
func NewCommissionRepository(logger *slog.Logger, db *persistence.PostgresDB) commission.Repository {
	return &CommissionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the transaction
func (r *CommissionRepository) WithTx(tx pgx.Tx) commission.Repository {
	return &CommissionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanCommission(row rowScanner) (*commission.CourseCommission, error) {
	var c commission.CourseCommission
	err := row.Scan(
		&c.ID,
		&c.CourseID,
		&c.TrainerID,
		&c.CommissionPercent,
		&c.IsActive,
		&c.Notes,
		&c.CreatedBy,
		&c.UpdatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert creates or edits the (course, trainer) record. An edit keeps the
// original id, creator and active flag, and its notes when none are given.
func (r *CommissionRepository) Upsert(ctx context.Context, c *commission.CourseCommission) (*commission.CourseCommission, error) {
	query := `
		INSERT INTO course_commissions (id, course_id, trainer_id, commission_percent, is_active, notes, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (course_id, trainer_id) DO UPDATE
		SET commission_percent = EXCLUDED.commission_percent,
			notes = COALESCE(NULLIF(EXCLUDED.notes, ''), course_commissions.notes),
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + commissionColumns

	stored, err := scanCommission(r.querier.QueryRow(ctx, query,
		c.ID,
		c.CourseID,
		c.TrainerID,
		c.CommissionPercent,
		c.IsActive,
		c.Notes,
		c.CreatedBy,
		c.UpdatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Failed to upsert commission", "course_id", c.CourseID, "trainer_id", c.TrainerID, "error", err)
		return nil, fmt.Errorf("failed to upsert commission: %w", err)
	}
	return stored, nil
}

// GetByID retrieves a commission record
func (r *CommissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*commission.CourseCommission, error) {
	query := `SELECT ` + commissionColumns + ` FROM course_commissions WHERE id = $1`

	c, err := scanCommission(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, commission.ErrCommissionNotFound{ID: id}
		}
		r.logger.Error("Failed to get commission", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	return c, nil
}

// SetActive toggles a commission without deleting it
func (r *CommissionRepository) SetActive(ctx context.Context, id uuid.UUID, isActive bool, adminID string) (*commission.CourseCommission, error) {
	query := `
		UPDATE course_commissions
		SET is_active = $1, updated_by = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + commissionColumns

	c, err := scanCommission(r.querier.QueryRow(ctx, query, isActive, adminID, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, commission.ErrCommissionNotFound{ID: id}
		}
		r.logger.Error("Failed to set commission active flag", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to set commission active flag: %w", err)
	}
	return c, nil
}

// ListByCourse returns every commission of a course, active or not
func (r *CommissionRepository) ListByCourse(ctx context.Context, courseID string) ([]*commission.CourseCommission, error) {
	query := `
		SELECT ` + commissionColumns + `
		FROM course_commissions
		WHERE course_id = $1
		ORDER BY trainer_id
	`

	rows, err := r.querier.Query(ctx, query, courseID)
	if err != nil {
		r.logger.Error("Failed to list commissions", "course_id", courseID, "error", err)
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	defer rows.Close()

	var commissions []*commission.CourseCommission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission: %w", err)
		}
		commissions = append(commissions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over commissions: %w", err)
	}
	return commissions, nil
}
