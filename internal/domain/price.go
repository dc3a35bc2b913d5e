package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a decimal price string. It validates that the input
// is non-negative and has at most 2 decimal places.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("price must be >= 0, got %s", s)
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, fmt.Errorf("price must have at most 2 decimal places, got %s", s)
	}
	return d, nil
}

// MustPrice is like ParsePrice but panics on error. Only used for
// compile-time seed tables.
func MustPrice(s string) decimal.Decimal {
	d, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RoundDownSignificant keeps the first digits significant digits of d,
// rounding toward zero. Zero is returned unchanged.
//
// Rounding toward zero keeps a value drawn from [0, r) strictly below r.
func RoundDownSignificant(d decimal.Decimal, digits int32) decimal.Decimal {
	if d.IsZero() || digits <= 0 {
		return d
	}
	// Exponent of the most significant digit, e.g. 0.0481 → -2, 17.8 → 1.
	coefficient := new(big.Int).Abs(d.Coefficient())
	msd := int32(len(coefficient.String())) - 1 + d.Exponent()
	return d.RoundDown(digits - 1 - msd)
}
