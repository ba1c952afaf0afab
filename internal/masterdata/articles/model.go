package articles

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
)

// LineType identifies the settlement article a credit-note line is
// booked under.
type LineType string

const (
	LineMindestpacht          LineType = "MINDESTPACHT"
	LineJahresnutzungsentgelt LineType = "JAHRESNUTZUNGSENTGELD"
	LineVorschussverrechnung  LineType = "VORSCHUSSVERRECHNUNG"
	LineZuwegung              LineType = "ZUWEGUNG"
	LineKabeltrasse           LineType = "KABELTRASSE"
	LineAusgleich             LineType = "AUSGLEICH"
)

// Article maps a settlement line type to a tax rate and ledger account.
type Article struct {
	Type          LineType        `json:"type"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	LedgerAccount string          `json:"ledger_account"`
}

// areaLineTypes is the closed dispatch table from plot-area type to
// article line type. Revenue-bearing areas (turbine site, pool) switch
// between the provisional and the final article family.
var areaLineTypes = map[leases.AreaType]struct{ advance, final LineType }{
	leases.AreaWEAStandort: {LineMindestpacht, LineJahresnutzungsentgelt},
	leases.AreaPool:        {LineMindestpacht, LineJahresnutzungsentgelt},
	leases.AreaWeg:         {LineZuwegung, LineZuwegung},
	leases.AreaKabel:       {LineKabeltrasse, LineKabeltrasse},
	leases.AreaAusgleich:   {LineAusgleich, LineAusgleich},
}

// LineTypeForArea resolves the article line type for an area type.
// Unknown area types are a configuration fault and fail hard.
func LineTypeForArea(at leases.AreaType, final bool) (LineType, error) {
	entry, ok := areaLineTypes[at]
	if !ok {
		return "", fmt.Errorf("articles: no article mapping for area type %q", at)
	}
	if final {
		return entry.final, nil
	}
	return entry.advance, nil
}
