package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWeightedAverage(t *testing.T) {
	avg, err := WeightedAverage(d("10"), d("100"), d("30"), d("120"))
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("115")), "got %s", avg)

	_, err = WeightedAverage(decimal.Zero, d("1"), decimal.Zero, d("2"))
	assert.Error(t, err)
}

func TestWeightedAverageExactForDecimalInputs(t *testing.T) {
	avg, err := WeightedAverage(d("0.1"), d("0.2"), d("0.3"), d("0.4"))
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("0.35")), "got %s", avg)
}

func TestPercent(t *testing.T) {
	p, ok := Percent(d("25"), d("200"))
	require.True(t, ok)
	assert.True(t, p.Equal(d("12.5")))

	_, ok = Percent(d("25"), decimal.Zero)
	assert.False(t, ok)
}

func TestParsePositive(t *testing.T) {
	v, err := ParsePositive(" 12.50 ")
	require.NoError(t, err)
	assert.True(t, v.Equal(d("12.5")))

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := ParsePositive(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1234.50", FormatUSD(d("1234.5")))
	assert.Equal(t, "-$3.00", FormatUSD(d("-3")))
	assert.Equal(t, "7.13%", FormatPercent(d("7.125")))
	assert.Equal(t, "3", MinDecimal(d("3"), d("4")).String())
}
