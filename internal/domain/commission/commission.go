package commission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTotalPercent is the advisory ceiling for the active split of one course
const MaxTotalPercent = 100

var (
	ErrInvalidPercent = errors.New("commission percent must be between 0 and 100")
	ErrInvalidCourse  = errors.New("course id is required")
	ErrInvalidTrainer = errors.New("trainer id is required")
)

// CourseCommission is a trainer's share of coin-funded sales of one course
type CourseCommission struct {
	ID                uuid.UUID `json:"id"`
	CourseID          string    `json:"course_id"`
	TrainerID         string    `json:"trainer_id"`
	CommissionPercent int       `json:"commission_percent"`
	IsActive          bool      `json:"is_active"`
	Notes             string    `json:"notes"`
	CreatedBy         string    `json:"created_by"`
	UpdatedBy         string    `json:"updated_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Payout is the coin credit owed to one trainer for a sale
type Payout struct {
	CommissionID uuid.UUID `json:"commission_id"`
	TrainerID    string    `json:"trainer_id"`
	Percent      int       `json:"percent"`
	Amount       int64     `json:"amount"`
}

// ValidatePercent checks a commission percentage is within [0, 100]
func ValidatePercent(percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidPercent
	}
	return nil
}

// New builds an active commission record
func New(courseID, trainerID string, percent int, adminID, notes string, now time.Time) (*CourseCommission, error) {
	courseID = strings.TrimSpace(courseID)
	trainerID = strings.TrimSpace(trainerID)
	if courseID == "" {
		return nil, ErrInvalidCourse
	}
	if trainerID == "" {
		return nil, ErrInvalidTrainer
	}
	if err := ValidatePercent(percent); err != nil {
		return nil, err
	}

	return &CourseCommission{
		ID:                uuid.New(),
		CourseID:          courseID,
		TrainerID:         trainerID,
		CommissionPercent: percent,
		IsActive:          true,
		Notes:             notes,
		CreatedBy:         adminID,
		UpdatedBy:         adminID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// PayoutFor returns floor(saleCoins * percent / 100)
func (c *CourseCommission) PayoutFor(saleCoins int64) int64 {
	if saleCoins <= 0 || c.CommissionPercent <= 0 {
		return 0
	}
	return saleCoins * int64(c.CommissionPercent) / 100
}

// ComputePayouts splits a sale across the active commissions of a course.
// Zero payouts are dropped; the unallocated remainder stays with the platform.
func ComputePayouts(commissions []*CourseCommission, saleCoins int64) []Payout {
	payouts := make([]Payout, 0, len(commissions))
	for _, c := range commissions {
		if !c.IsActive {
			continue
		}
		amount := c.PayoutFor(saleCoins)
		if amount == 0 {
			continue
		}
		payouts = append(payouts, Payout{
			CommissionID: c.ID,
			TrainerID:    c.TrainerID,
			Percent:      c.CommissionPercent,
			Amount:       amount,
		})
	}
	sort.Slice(payouts, func(i, j int) bool {
		return payouts[i].TrainerID < payouts[j].TrainerID
	})
	return payouts
}

// TotalPaid sums the payout amounts
func TotalPaid(payouts []Payout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}

// ActiveTotal sums the percentages of the active commissions
func ActiveTotal(commissions []*CourseCommission) int {
	total := 0
	for _, c := range commissions {
		if c.IsActive {
			total += c.CommissionPercent
		}
	}
	return total
}

// AllocationWarning returns an advisory when the active split of a course exceeds 100%
func AllocationWarning(courseID string, commissions []*CourseCommission) string {
	total := ActiveTotal(commissions)
	if total <= MaxTotalPercent {
		return ""
	}
	return fmt.Sprintf("active commissions for course %s total %d%%, above %d%%", courseID, total, MaxTotalPercent)
}
