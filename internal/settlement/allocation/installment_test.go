package allocation

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
)

func TestIntervalDivisors(t *testing.T) {
	for interval, want := range map[Interval]int{
		IntervalYearly:    1,
		IntervalQuarterly: 4,
		IntervalMonthly:   12,
	} {
		got, err := interval.Divisor()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := Interval("WEEKLY").Divisor()
	require.Error(t, err)
}

func TestIntervalServicePeriods(t *testing.T) {
	sp, err := IntervalServicePeriod(2025, IntervalYearly, 0)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), sp.Start)
	require.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), sp.End)
	require.Equal(t, "Pachtvorschuss 2025", sp.Label)

	sp, err = IntervalServicePeriod(2025, IntervalQuarterly, 3)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), sp.Start)
	require.Equal(t, time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), sp.End)
	require.Equal(t, "Pachtvorschuss Q3/2025", sp.Label)

	sp, err = IntervalServicePeriod(2025, IntervalMonthly, 3)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), sp.Start)
	require.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), sp.End)
	require.Equal(t, "Pachtvorschuss 03/2025", sp.Label)

	_, err = IntervalServicePeriod(2025, IntervalQuarterly, 5)
	require.Error(t, err)
	_, err = IntervalServicePeriod(2025, IntervalMonthly, 13)
	require.Error(t, err)
}

func TestMonthlyInstallmentScenario(t *testing.T) {
	// 10,000 yearly WEA allocation split monthly: 833.33 per month
	res := Calculate(slog.Default(), testPark(), singleLease(), true, 2025, decimal.NewFromInt(100000))
	lines, err := SplitInstallments(res.Leases[0], IntervalMonthly)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "833.33", lines[0].Amount.StringFixed(2))
	require.Equal(t, "7500.00", lines[1].Amount.StringFixed(2))
}

func TestInstallmentIdentityWithinTolerance(t *testing.T) {
	// summing the twelve monthly installments must not drift from the
	// yearly allocation by more than 0.01 per installment
	res := Calculate(slog.Default(), testPark(), singleLease(), true, 2025, decimal.NewFromInt(100000))
	la := res.Leases[0]
	lines, err := SplitInstallments(la, IntervalMonthly)
	require.NoError(t, err)

	tolerance := decimal.NewFromFloat(0.12)
	for i, pa := range la.Parcels {
		yearly := pa.Amount
		total := lines[i].Amount.Mul(decimal.NewFromInt(12))
		drift := total.Sub(yearly).Abs()
		require.True(t, drift.LessThanOrEqual(tolerance), "parcel %d drift %s", i, drift.String())
	}
}

func TestNegligibleInstallmentsDropped(t *testing.T) {
	la := LeaseAllocation{
		Parcels: []ParcelAllocation{
			{Plot: leases.PlotArea{ID: 1}, Amount: decimal.NewFromFloat(0.05)},
			{Plot: leases.PlotArea{ID: 2}, Amount: decimal.NewFromInt(120)},
		},
	}
	lines, err := SplitInstallments(la, IntervalMonthly)
	require.NoError(t, err)
	// 0.05/12 rounds below a cent and is dropped
	require.Len(t, lines, 1)
	require.Equal(t, int64(2), lines[0].Parcel.Plot.ID)
	require.Equal(t, "10.00", lines[0].Amount.StringFixed(2))
}
