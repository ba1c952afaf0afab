package articles

import "github.com/shopspring/decimal"

// Defaults returns the fixed system articles used when a park has no
// own configuration. Ledger accounts follow the SKR04 rent accounts.
func Defaults() []Article {
	nineteen := decimal.NewFromInt(19)
	return []Article{
		{Type: LineMindestpacht, TaxRate: nineteen, LedgerAccount: "6310"},
		{Type: LineJahresnutzungsentgelt, TaxRate: nineteen, LedgerAccount: "6310"},
		{Type: LineVorschussverrechnung, TaxRate: nineteen, LedgerAccount: "6310"},
		{Type: LineZuwegung, TaxRate: nineteen, LedgerAccount: "6318"},
		{Type: LineKabeltrasse, TaxRate: nineteen, LedgerAccount: "6318"},
		{Type: LineAusgleich, TaxRate: decimal.Zero, LedgerAccount: "6319"},
	}
}

// Resolve returns the park's article configuration keyed by line type,
// falling back to Defaults when the park has none configured. Line
// types the park configuration misses are filled from the defaults so
// the lookup is total.
func Resolve(parkArticles []Article) map[LineType]Article {
	resolved := make(map[LineType]Article, len(parkArticles))
	for _, a := range Defaults() {
		resolved[a.Type] = a
	}
	for _, a := range parkArticles {
		resolved[a.Type] = a
	}
	return resolved
}
