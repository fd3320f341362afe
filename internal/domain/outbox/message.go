package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dancecoin-ledger/internal/domain/ledger"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Message carries one committed ledger entry to the downstream sinks.
// It is written in the same transaction as the entry.
type Message struct {
	ID            int64               `json:"id"`
	EntryID       uuid.UUID           `json:"entry_id"`
	AccountID     string              `json:"account_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots entry as a pending message
func NewMessage(entry *ledger.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger entry %s: %w", entry.ID, err)
	}
	return &Message{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// Entry decodes the carried ledger entry
func (m *Message) Entry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FinalAttempt reports whether a failure now uses up the retry budget
func (m *Message) FinalAttempt(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}
