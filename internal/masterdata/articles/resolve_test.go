package articles

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
)

func TestResolveFallsBackToDefaults(t *testing.T) {
	resolved := Resolve(nil)
	require.Len(t, resolved, 6)
	require.Equal(t, "6310", resolved[LineMindestpacht].LedgerAccount)
	require.True(t, resolved[LineAusgleich].TaxRate.IsZero())
}

func TestResolvePrefersParkConfig(t *testing.T) {
	park := []Article{
		{Type: LineMindestpacht, TaxRate: decimal.NewFromInt(7), LedgerAccount: "4100"},
	}
	resolved := Resolve(park)
	require.Equal(t, "4100", resolved[LineMindestpacht].LedgerAccount)
	require.Equal(t, "7", resolved[LineMindestpacht].TaxRate.String())
	// line types the park left out are filled from defaults
	require.Equal(t, "6318", resolved[LineZuwegung].LedgerAccount)
}

func TestLineTypeForArea(t *testing.T) {
	lt, err := LineTypeForArea(leases.AreaWEAStandort, false)
	require.NoError(t, err)
	require.Equal(t, LineMindestpacht, lt)

	lt, err = LineTypeForArea(leases.AreaWEAStandort, true)
	require.NoError(t, err)
	require.Equal(t, LineJahresnutzungsentgelt, lt)

	lt, err = LineTypeForArea(leases.AreaKabel, true)
	require.NoError(t, err)
	require.Equal(t, LineKabeltrasse, lt)

	_, err = LineTypeForArea(leases.AreaType("BOGUS"), true)
	require.Error(t, err)
}
