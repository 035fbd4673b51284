// Package money holds the decimal helpers used for prices, share counts and
// portfolio values. All arithmetic stays in shopspring/decimal; floats only
// appear at presentation edges.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	Hundred = decimal.NewFromInt(100)
)

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Percent returns part/whole*100 and false when whole is not positive.
func Percent(part, whole decimal.Decimal) (decimal.Decimal, bool) {
	if !whole.IsPositive() {
		return decimal.Zero, false
	}
	return part.Div(whole).Mul(Hundred), true
}

// WeightedAverage returns (q1*p1 + q2*p2) / (q1+q2). The division is carried
// out at decimal.DivisionPrecision, so repeated merges do not drift.
func WeightedAverage(q1, p1, q2, p2 decimal.Decimal) (decimal.Decimal, error) {
	total := q1.Add(q2)
	if !total.IsPositive() {
		return decimal.Zero, fmt.Errorf("weighted average over non-positive quantity %s", total)
	}
	return q1.Mul(p1).Add(q2.Mul(p2)).Div(total), nil
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ParsePositive parses s as a strictly positive decimal.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("value must be positive, got %s", d)
	}
	return d, nil
}

// FormatUSD renders d as a dollar amount with two decimals.
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatPercent renders d with two decimals and a percent sign.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
