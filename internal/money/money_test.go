package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundCentsHalfUp(t *testing.T) {
	cases := map[string]string{
		"833.333333": "833.33",
		"833.335":    "833.34",
		"0.005":      "0.01",
		"-0.005":     "-0.01",
		"158.3327":   "158.33",
	}
	for in, want := range cases {
		d, err := decimal.NewFromString(in)
		require.NoError(t, err)
		require.Equal(t, want, RoundCents(d).StringFixed(2), "input %s", in)
	}
}

func TestIsNegligible(t *testing.T) {
	require.True(t, IsNegligible(decimal.NewFromFloat(0.009)))
	require.True(t, IsNegligible(decimal.NewFromFloat(-0.009)))
	require.False(t, IsNegligible(decimal.NewFromFloat(0.01)))
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(100000), decimal.NewFromInt(10))
	require.True(t, got.Equal(decimal.NewFromInt(10000)))
}
