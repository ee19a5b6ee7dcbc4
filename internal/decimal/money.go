package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// DefaultTolerance is the largest gap between a declared and a computed
// amount that is still considered equal (one cent)
var DefaultTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// FromString parses decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// Round rounds to 2 places (cents)
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Mul multiplies two decimals, rounds to 2 places
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Round(2)
}

// CalculateTax computes tax owed: amount * (rate/100), rounded to cents
func CalculateTax(amount, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return Zero
	}
	return amount.Mul(ratePercent).Div(hundred).Round(2)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// WithinTolerance reports whether |a-b| <= tolerance
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
