package redemption

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CodePrefix = "DANCE"

	// Ambiguous glyphs (0/O, 1/I) are left out of generated codes
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	groupLength  = 4
)

var (
	ErrInvalidCode     = errors.New("redemption code must not be empty")
	ErrInvalidMaxUses  = errors.New("max uses must be at least 1")
	ErrInvalidCoins    = errors.New("coin amount must be positive")
	ErrInvalidLifetime = errors.New("expiry must be in the future")
)

// Key is a promotional code convertible to coins
type Key struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	CoinAmount  int64      `json:"coin_amount"`
	MaxUses     int        `json:"max_uses"`
	CurrentUses int        `json:"current_uses"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NormalizeCode trims and upper-cases a user supplied code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewKey validates the parameters of an admin issued key. A nil expiresIn means the key never expires.
func NewKey(code string, coinAmount int64, createdBy string, maxUses int, expiresIn *time.Duration, now time.Time) (*Key, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if coinAmount <= 0 {
		return nil, ErrInvalidCoins
	}
	if maxUses < 1 {
		return nil, ErrInvalidMaxUses
	}

	k := &Key{
		ID:         uuid.New(),
		Code:       code,
		CoinAmount: coinAmount,
		MaxUses:    maxUses,
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}
	if expiresIn != nil {
		if *expiresIn <= 0 {
			return nil, ErrInvalidLifetime
		}
		expires := now.Add(*expiresIn)
		k.ExpiresAt = &expires
	}
	return k, nil
}

// Check reports why the key cannot be redeemed at now, or nil when it is valid
func (k *Key) Check(now time.Time) error {
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return &Error{Kind: KindExpired, Code: k.Code}
	}
	if k.CurrentUses >= k.MaxUses {
		return &Error{Kind: KindExhausted, Code: k.Code}
	}
	return nil
}

// Valid reports whether the key can be redeemed at now
func (k *Key) Valid(now time.Time) bool {
	return k.Check(now) == nil
}

// RemainingUses returns how many redemptions are left
func (k *Key) RemainingUses() int {
	if k.CurrentUses >= k.MaxUses {
		return 0
	}
	return k.MaxUses - k.CurrentUses
}

// GenerateCode returns a fresh code such as DANCE-AB12-CD34
func GenerateCode() (string, error) {
	groups := make([]string, 0, 3)
	groups = append(groups, CodePrefix)
	for i := 0; i < 2; i++ {
		var sb strings.Builder
		for j := 0; j < groupLength; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", err
			}
			sb.WriteByte(codeAlphabet[n.Int64()])
		}
		groups = append(groups, sb.String())
	}
	return strings.Join(groups, "-"), nil
}
