// Package pricing converts euro prices into DanceCoins. All arithmetic runs on
// integer euro cents; decimal strings are parsed exactly at the boundary.
package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice = errors.New("price must be a non-negative euro amount with at most 2 decimals")
	ErrInvalidRate  = errors.New("coin value must be positive and cashback percent within [0,100]")
)

var hundred = decimal.NewFromInt(100)

// Calculator holds the exchange rate and the cashback policy
type Calculator struct {
	CoinValueCents  int64
	CashbackPercent int64
}

// Quote is the coin cost and cashback of a euro price
type Quote struct {
	PriceEUR      string `json:"price_eur"`
	PriceCents    int64  `json:"price_cents"`
	Coins         int64  `json:"coins"`
	CashbackCoins int64  `json:"cashback_coins"`
}

// NewCalculator validates the rate settings
func NewCalculator(coinValueCents, cashbackPercent int64) (Calculator, error) {
	if coinValueCents <= 0 || cashbackPercent < 0 || cashbackPercent > 100 {
		return Calculator{}, ErrInvalidRate
	}
	return Calculator{CoinValueCents: coinValueCents, CashbackPercent: cashbackPercent}, nil
}

// ParseEUR converts a decimal euro string such as "49.99" into cents
func ParseEUR(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if d.IsNegative() {
		return 0, ErrInvalidPrice
	}
	// "1.500" is exact, "1.999" is not
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, ErrInvalidPrice
	}
	return cents.IntPart(), nil
}

// FormatEUR renders cents as a two-decimal euro string
func FormatEUR(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// CoinsForPrice rounds up: customers never pay less than the price
func (c Calculator) CoinsForPrice(priceCents int64) int64 {
	if priceCents <= 0 {
		return 0
	}
	return (priceCents + c.CoinValueCents - 1) / c.CoinValueCents
}

// CashbackCoins rounds down: the platform never credits more than the policy
func (c Calculator) CashbackCoins(priceCents int64) int64 {
	if priceCents <= 0 {
		return 0
	}
	return priceCents * c.CashbackPercent / (100 * c.CoinValueCents)
}

// CoinsValueCents is the euro value of a coin amount
func (c Calculator) CoinsValueCents(coins int64) int64 {
	return coins * c.CoinValueCents
}

// Quote prices a euro amount
func (c Calculator) Quote(priceEUR string) (Quote, error) {
	cents, err := ParseEUR(priceEUR)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		PriceEUR:      FormatEUR(cents),
		PriceCents:    cents,
		Coins:         c.CoinsForPrice(cents),
		CashbackCoins: c.CashbackCoins(cents),
	}, nil
}
