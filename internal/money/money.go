// Package money centralises the engine's monetary rounding rules.
// All cent-level rounding goes through RoundCents so that tax splits,
// pool pro-rata shares and installment division behave identically.
package money

import "github.com/shopspring/decimal"

// Negligible is the materiality threshold: amounts whose absolute value
// is below one cent are dropped rather than emitted as zero lines.
var Negligible = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsNegligible reports whether |d| is below one cent.
func IsNegligible(d decimal.Decimal) bool {
	return d.Abs().LessThan(Negligible)
}

// Percent returns base * pct / 100 without rounding.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}
