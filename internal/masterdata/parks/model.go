package parks

import "github.com/shopspring/decimal"

// Park carries the settlement-relevant configuration of a wind park:
// revenue-share percentages, the per-turbine minimum rent guarantee and
// the compensation rates for non-revenue parcel types.
type Park struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Name     string `json:"name"`

	WEASharePct  decimal.Decimal `json:"wea_share_pct"`
	PoolSharePct decimal.Decimal `json:"pool_share_pct"`

	MinimumRentPerTurbine decimal.Decimal `json:"minimum_rent_per_turbine"`

	RatePerSqmWeg       decimal.Decimal `json:"rate_per_sqm_weg"`
	RatePerMeterKabel   decimal.Decimal `json:"rate_per_meter_kabel"`
	RatePerSqmAusgleich decimal.Decimal `json:"rate_per_sqm_ausgleich"`
}
