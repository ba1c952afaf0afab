package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, CategoryExempt, Classify(decimal.Zero))
	require.Equal(t, CategoryReduced, Classify(decimal.NewFromInt(7)))
	require.Equal(t, CategoryStandard, Classify(decimal.NewFromInt(19)))
	require.Equal(t, CategoryStandard, Classify(decimal.NewFromFloat(16.5)))
}

func TestCalculateStandardSplit(t *testing.T) {
	net := decimal.NewFromFloat(833.33)
	split, err := Calculate(net, decimal.NewFromInt(19), DefaultRates())
	require.NoError(t, err)
	require.Equal(t, CategoryStandard, split.Category)
	require.Equal(t, "158.33", split.Tax.StringFixed(2))
	require.Equal(t, "991.66", split.Gross.StringFixed(2))
}

func TestCalculateExempt(t *testing.T) {
	split, err := Calculate(decimal.NewFromInt(100), decimal.Zero, DefaultRates())
	require.NoError(t, err)
	require.Equal(t, CategoryExempt, split.Category)
	require.True(t, split.Tax.IsZero())
	require.Equal(t, "100.00", split.Gross.StringFixed(2))
}

func TestCalculateUsesTenantRate(t *testing.T) {
	table := DefaultRates()
	table[CategoryStandard] = decimal.NewFromInt(16)
	split, err := Calculate(decimal.NewFromInt(100), decimal.NewFromInt(19), table)
	require.NoError(t, err)
	require.Equal(t, "16.00", split.Tax.StringFixed(2))
	require.Equal(t, "116.00", split.Gross.StringFixed(2))
}

func TestCalculateRejectsNegativeNet(t *testing.T) {
	_, err := Calculate(decimal.NewFromInt(-1), decimal.NewFromInt(19), DefaultRates())
	require.ErrorIs(t, err, ErrNegativeNet)
}

func TestGrossEqualsNetPlusTax(t *testing.T) {
	rates := DefaultRates()
	for _, net := range []float64{0.01, 1, 99.99, 833.33, 10000} {
		d := decimal.NewFromFloat(net)
		split, err := Calculate(d, decimal.NewFromInt(19), rates)
		require.NoError(t, err)
		require.True(t, split.Gross.Equal(d.Add(split.Tax)), "net %v", net)
	}
}
