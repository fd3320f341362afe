package redemption

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "DANCE-AB12-CD34", NormalizeCode("  dance-ab12-cd34\n"))
}

func TestNewKey(t *testing.T) {
	now := time.Now()
	week := 7 * 24 * time.Hour
	zero := time.Duration(0)

	testCases := []struct {
		name      string
		code      string
		coins     int64
		maxUses   int
		expiresIn *time.Duration
		wantErr   error
	}{
		{"Valid", "dance-ab12-cd34", 10, 1, nil, nil},
		{"WithExpiry", "SPRING", 25, 100, &week, nil},
		{"EmptyCode", "   ", 10, 1, nil, ErrInvalidCode},
		{"ZeroCoins", "X", 0, 1, nil, ErrInvalidCoins},
		{"ZeroUses", "X", 10, 0, nil, ErrInvalidMaxUses},
		{"PastExpiry", "X", 10, 1, &zero, ErrInvalidLifetime},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := NewKey(tc.code, tc.coins, "admin-1", tc.maxUses, tc.expiresIn, now)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, k)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, NormalizeCode(tc.code), k.Code)
			assert.Equal(t, 0, k.CurrentUses)
			assert.Equal(t, "admin-1", k.CreatedBy)
			if tc.expiresIn == nil {
				assert.Nil(t, k.ExpiresAt)
			} else {
				assert.True(t, k.ExpiresAt.Equal(now.Add(*tc.expiresIn)))
			}
		})
	}
}

func TestKey_Check(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	testCases := []struct {
		name     string
		key      Key
		wantKind Kind
	}{
		{"Valid", Key{MaxUses: 1}, ""},
		{"ValidBeforeExpiry", Key{MaxUses: 2, CurrentUses: 1, ExpiresAt: &future}, ""},
		{"Exhausted", Key{MaxUses: 1, CurrentUses: 1}, KindExhausted},
		{"Expired", Key{MaxUses: 1, ExpiresAt: &past}, KindExpired},
		{"ExpiresExactlyNow", Key{MaxUses: 1, ExpiresAt: &now}, KindExpired},
		{"ExpiredAndExhausted", Key{MaxUses: 1, CurrentUses: 1, ExpiresAt: &past}, KindExpired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.key.Check(now)
			if tc.wantKind == "" {
				assert.NoError(t, err)
				assert.True(t, tc.key.Valid(now))
				return
			}
			assert.ErrorIs(t, err, &Error{Kind: tc.wantKind})
			assert.False(t, tc.key.Valid(now))
		})
	}
}

func TestKey_RemainingUses(t *testing.T) {
	assert.Equal(t, 3, (&Key{MaxUses: 5, CurrentUses: 2}).RemainingUses())
	assert.Equal(t, 0, (&Key{MaxUses: 1, CurrentUses: 1}).RemainingUses())
}

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^DANCE-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("redeem: %w", &Error{Kind: KindExhausted, Code: "DANCE-AB12-CD34"})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, &Error{})
	assert.False(t, errors.Is(err, ErrExpired))
	assert.Equal(t, "redeem: redemption code DANCE-AB12-CD34 has no uses left", err.Error())

	var redemptionErr *Error
	require.True(t, errors.As(err, &redemptionErr))
	assert.Equal(t, KindExhausted, redemptionErr.Kind)
}
