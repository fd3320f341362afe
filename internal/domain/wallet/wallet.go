package wallet

import (
	"strings"
	"time"

	"github.com/dancecoin-ledger/internal/domain/shared"
)

// Wallet is the cached balance view of one account. The ledger is the source of truth.
type Wallet struct {
	AccountID        string     `json:"account_id"`
	Balance          int64      `json:"balance"`
	TotalEarned      int64      `json:"total_earned"`
	TotalSpent       int64      `json:"total_spent"`
	LastDailyBonusAt *time.Time `json:"last_daily_bonus_at,omitempty"`
	Version          int        `json:"version"` // For optimistic locking
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// New returns an empty wallet for an account seen for the first time
func New(accountID string, now time.Time) *Wallet {
	return &Wallet{
		AccountID: strings.TrimSpace(accountID),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds coins to the balance and the earned total
func (w *Wallet) Credit(amount int64, now time.Time) error {
	if amount <= 0 {
		return shared.ErrInvalidAmount
	}

	w.Balance += amount
	w.TotalEarned += amount
	w.UpdatedAt = now
	w.Version++
	return nil
}

// Debit removes coins from the balance, refusing to go below zero
func (w *Wallet) Debit(amount int64, now time.Time) error {
	if amount <= 0 {
		return shared.ErrInvalidAmount
	}

	if !w.CanDebit(amount) {
		return shared.ErrInsufficientBalance
	}

	w.Balance -= amount
	w.TotalSpent += amount
	w.UpdatedAt = now
	w.Version++
	return nil
}

// CanDebit checks if the wallet covers a debit of amount
func (w *Wallet) CanDebit(amount int64) bool {
	return w.Balance >= amount
}

// CanClaimDailyBonus reports whether the last claim fell on an earlier calendar
// day than now, both dates taken in loc.
func (w *Wallet) CanClaimDailyBonus(now time.Time, loc *time.Location) bool {
	if w.LastDailyBonusAt == nil {
		return true
	}
	return calendarDay(*w.LastDailyBonusAt, loc).Before(calendarDay(now, loc))
}

// MarkDailyBonus records the claim time
func (w *Wallet) MarkDailyBonus(now time.Time) {
	claimed := now
	w.LastDailyBonusAt = &claimed
}

// Consistent checks the cached aggregates against each other
func (w *Wallet) Consistent() bool {
	return w.Balance >= 0 &&
		w.TotalEarned >= 0 &&
		w.TotalSpent >= 0 &&
		w.Balance == w.TotalEarned-w.TotalSpent
}

// Clone returns a copy detached from the receiver
func (w *Wallet) Clone() *Wallet {
	c := *w
	if w.LastDailyBonusAt != nil {
		t := *w.LastDailyBonusAt
		c.LastDailyBonusAt = &t
	}
	return &c
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayKey formats the calendar day of t in loc, e.g. 2024-03-09
func DayKey(t time.Time, loc *time.Location) string {
	return calendarDay(t, loc).Format(time.DateOnly)
}
