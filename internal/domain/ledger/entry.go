package ledger

import (
	"fmt"
	"time"

	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Entry is one immutable record of a balance change
type Entry struct {
	ID             uuid.UUID `json:"id" bson:"entry_id"`
	AccountID      string    `json:"account_id" bson:"account_id"`
	Type           EntryType `json:"type" bson:"type"`
	Amount         int64     `json:"amount" bson:"amount"` // Signed, credits are positive
	BalanceAfter   int64     `json:"balance_after" bson:"balance_after"`
	ReferenceID    string    `json:"reference_id,omitempty" bson:"reference_id,omitempty"`
	Note           string    `json:"note" bson:"note"`
	IdempotencyKey string    `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	ActorID        string    `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// Magnitude returns the unsigned coin amount of the entry
func (e *Entry) Magnitude() int64 {
	if e.Amount < 0 {
		return -e.Amount
	}
	return e.Amount
}

// Validate checks the entry against the balance it is appended on top of
func (e *Entry) Validate(balanceBefore int64) error {
	violation := func(format string, args ...interface{}) error {
		return shared.ErrInvariantViolation{AccountID: e.AccountID, Reason: fmt.Sprintf(format, args...)}
	}

	if !e.Type.Valid() {
		return violation("unknown entry type %q", e.Type)
	}
	if e.Amount == 0 {
		return violation("zero amount %s entry", e.Type)
	}
	if e.Type.IsCredit() != (e.Amount > 0) {
		return violation("%s entry has amount %d with the wrong sign", e.Type, e.Amount)
	}
	if balanceBefore+e.Amount < 0 {
		return violation("entry would drive balance from %d to %d", balanceBefore, balanceBefore+e.Amount)
	}
	if e.BalanceAfter != balanceBefore+e.Amount {
		return violation("balance after %d does not match running sum %d", e.BalanceAfter, balanceBefore+e.Amount)
	}
	return nil
}

// BalanceChangedEvent is published after each committed entry
type BalanceChangedEvent struct {
	EntryID     uuid.UUID `json:"entry_id"`
	AccountID   string    `json:"account_id"`
	Type        EntryType `json:"type"`
	Amount      int64     `json:"amount"`
	Balance     int64     `json:"balance"`
	ReferenceID string    `json:"reference_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBalanceChangedEvent builds the notification for a committed entry
func NewBalanceChangedEvent(e *Entry) BalanceChangedEvent {
	return BalanceChangedEvent{
		EntryID:     e.ID,
		AccountID:   e.AccountID,
		Type:        e.Type,
		Amount:      e.Amount,
		Balance:     e.BalanceAfter,
		ReferenceID: e.ReferenceID,
		OccurredAt:  e.CreatedAt,
	}
}
