// Package tax converts configured tax rates into tax categories and
// produces net/tax/gross splits for credit-note lines.
package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/money"
)

// Category enumerates the tax categories known to the engine.
type Category string

const (
	CategoryStandard Category = "STANDARD"
	CategoryReduced  Category = "REDUCED"
	CategoryExempt   Category = "EXEMPT"
)

// RateTable maps tax categories to percentages, tenant-scoped.
type RateTable map[Category]decimal.Decimal

// DefaultRates returns the system fallback used when a tenant has no
// tax_rate_configs rows.
func DefaultRates() RateTable {
	return RateTable{
		CategoryStandard: decimal.NewFromInt(19),
		CategoryReduced:  decimal.NewFromInt(7),
		CategoryExempt:   decimal.Zero,
	}
}

var reducedRate = decimal.NewFromInt(7)

// Classify maps a stored percentage to a category: 0 is exempt, 7 is
// reduced, everything else is standard.
func Classify(rate decimal.Decimal) Category {
	switch {
	case rate.IsZero():
		return CategoryExempt
	case rate.Equal(reducedRate):
		return CategoryReduced
	default:
		return CategoryStandard
	}
}

// Split is the result of applying a tax rate to a net amount.
type Split struct {
	Category Category
	Rate     decimal.Decimal
	Tax      decimal.Decimal
	Gross    decimal.Decimal
}

// ErrNegativeNet rejects tax calculation on negative net amounts;
// deduction lines negate an already-computed positive split instead.
var ErrNegativeNet = errors.New("tax: net amount must not be negative")

// Calculate classifies the configured rate, resolves the category's
// effective percentage from the table and returns the rounded split.
// Tax and gross are rounded per money.RoundCents.
func Calculate(net, configuredRate decimal.Decimal, rates RateTable) (Split, error) {
	if net.IsNegative() {
		return Split{}, fmt.Errorf("%w: %s", ErrNegativeNet, net.StringFixed(2))
	}
	category := Classify(configuredRate)
	rate := configuredRate
	if effective, ok := rates[category]; ok {
		rate = effective
	}
	tax := money.RoundCents(money.Percent(net, rate))
	return Split{
		Category: category,
		Rate:     rate,
		Tax:      tax,
		Gross:    money.RoundCents(net).Add(tax),
	}, nil
}
