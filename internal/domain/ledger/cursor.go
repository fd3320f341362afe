package ledger

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid history cursor")

// Cursor marks the last entry seen when paging newest first
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// PageQuery selects one page of an account's history
type PageQuery struct {
	Limit  int
	Before *Cursor
}

// ClampLimit keeps a requested page size within [1, MaxPageLimit]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// CursorAfter returns the cursor that continues after the entry
func CursorAfter(e *Entry) *Cursor {
	return &Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
}

// Encode renders the cursor as an opaque URL-safe token
func (c *Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: createdAt, ID: entryID}, nil
}

// Precedes reports whether e sorts after the cursor in newest-first order
func (c *Cursor) Precedes(e *Entry) bool {
	if e.CreatedAt.Equal(c.CreatedAt) {
		return strings.Compare(e.ID.String(), c.ID.String()) < 0
	}
	return e.CreatedAt.Before(c.CreatedAt)
}
