package memory

import (
	"context"
	"time"

	"github.com/dancecoin-ledger/internal/domain/outbox"
	"github.com/dancecoin-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository implements outbox.Repository in memory
type OutboxRepository struct {
	scope scope
}

func (r *OutboxRepository) WithTx(_ pgx.Tx) outbox.Repository {
	return r
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	defer r.scope.lock()()
	st := r.scope.state()

	for _, m := range st.messages {
		if m.EntryID == message.EntryID {
			return outbox.ErrDuplicateMessage{EntryID: message.EntryID}
		}
	}
	message.ID = st.nextOutboxID
	st.nextOutboxID++
	cp := *message
	st.messages = append(st.messages, &cp)
	return nil
}

// GetPending returns pending messages in insertion order
func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	defer r.scope.lock()()

	var pending []*outbox.Message
	for _, m := range r.scope.state().messages {
		if m.Status == shared.OutboxStatusPending {
			cp := *m
			pending = append(pending, &cp)
		}
	}
	return page(pending, limit, 0), nil
}

func (r *OutboxRepository) find(id int64) (*outbox.Message, error) {
	for _, m := range r.scope.state().messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{ID: id}
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	defer r.scope.lock()()

	m, err := r.find(id)
	if err != nil {
		return err
	}
	now := time.Now()
	m.Status = status
	m.LastAttemptAt = &now
	return nil
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	defer r.scope.lock()()

	m, err := r.find(id)
	if err != nil {
		return err
	}
	now := time.Now()
	m.Attempts++
	m.LastAttemptAt = &now
	return nil
}

func (r *OutboxRepository) GetByEntryID(_ context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	defer r.scope.lock()()

	for _, m := range r.scope.state().messages {
		if m.EntryID == entryID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{}
}
