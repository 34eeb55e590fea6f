package payafter

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	maxFen  = decimal.NewFromInt(math.MaxInt64)
	minFen  = decimal.NewFromInt(math.MinInt64)
)

// Fen converts a yuan amount to fen, rounding half away from zero. Amounts
// outside the int64 range fail with ErrInvalidRequest.
func Fen(yuan decimal.Decimal) (int64, error) {
	fen := yuan.Mul(hundred).Round(0)
	if fen.GreaterThan(maxFen) || fen.LessThan(minFen) {
		return 0, fmt.Errorf("%w: amount %s yuan overflows fen", ErrInvalidRequest, yuan.String())
	}

	return fen.IntPart(), nil
}

// ParseYuan parses a decimal yuan string such as "12.50" into fen. Amounts
// that are negative, have sub-fen precision or overflow are rejected.
func ParseYuan(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %w", ErrInvalidRequest, s, err)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("%w: amount %q is negative", ErrInvalidRequest, s)
	}

	if !d.Mul(hundred).IsInteger() {
		return 0, fmt.Errorf("%w: amount %q is finer than one fen", ErrInvalidRequest, s)
	}

	return Fen(d)
}

// Yuan formats fen as a two-decimal yuan string.
func Yuan(fen int64) string {
	return decimal.New(fen, -2).StringFixed(2)
}
