package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-renderer/internal/decimal"
)

func TestFromString(t *testing.T) {
	d, err := decimal.FromString("123456.78")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec.RequireFromString("123456.78")))

	_, err = decimal.FromString("not-a-number")
	require.Error(t, err)
}

func TestRound(t *testing.T) {
	assert.True(t, decimal.Round(dec.RequireFromString("10.005")).Equal(dec.RequireFromString("10.01")))
	assert.True(t, decimal.Round(dec.RequireFromString("10.004")).Equal(dec.RequireFromString("10.00")))
}

func TestMul(t *testing.T) {
	a := dec.NewFromInt(2)
	b := dec.RequireFromString("10.00")
	result := decimal.Mul(a, b)
	assert.True(t, result.Equal(dec.RequireFromString("20.00")))

	result = decimal.Mul(dec.RequireFromString("3"), dec.RequireFromString("0.333"))
	assert.True(t, result.Equal(dec.RequireFromString("1.00")))
}

func TestCalculateTax(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		rate     string
		expected string
	}{
		{"22% of 20.00", "20.00", "22", "4.40"},
		{"10% of 100", "100", "10", "10"},
		{"4% of 12.34", "12.34", "4", "0.49"},
		{"0% rate", "500", "0", "0"},
		{"22% of 0.05 (rounds half up)", "0.05", "22", "0.01"},
		{"fractional rate", "200", "5.5", "11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decimal.CalculateTax(dec.RequireFromString(tt.amount), dec.RequireFromString(tt.rate))
			expected := dec.RequireFromString(tt.expected)

			assert.True(t, result.Equal(expected),
				"Expected %s, got %s", expected.String(), result.String())
		})
	}
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.RequireFromString("10.10"),
		dec.RequireFromString("20.20"),
		dec.RequireFromString("0.70"),
	}
	assert.True(t, decimal.Sum(values).Equal(dec.RequireFromString("31")))
	assert.True(t, decimal.Sum(nil).IsZero())
}

func TestIsNonNegative(t *testing.T) {
	assert.True(t, decimal.IsNonNegative(dec.Zero))
	assert.True(t, decimal.IsNonNegative(dec.NewFromInt(2)))
	assert.False(t, decimal.IsNonNegative(dec.NewFromInt(-1)))
}

func TestWithinTolerance(t *testing.T) {
	tol := decimal.DefaultTolerance

	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("24.40"), dec.RequireFromString("24.40"), tol))
	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("24.41"), dec.RequireFromString("24.40"), tol))
	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("24.39"), dec.RequireFromString("24.40"), tol))
	assert.False(t, decimal.WithinTolerance(dec.RequireFromString("24.42"), dec.RequireFromString("24.40"), tol))
	assert.False(t, decimal.WithinTolerance(dec.RequireFromString("0"), dec.RequireFromString("24.40"), tol))
}

// Benchmark tests

func BenchmarkCalculateTax(b *testing.B) {
	amount := dec.RequireFromString("1234.56")
	rate := dec.NewFromInt(22)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		decimal.CalculateTax(amount, rate)
	}
}
