package leases

import "github.com/shopspring/decimal"

// AreaType classifies a plot area by use.
type AreaType string

const (
	AreaWEAStandort AreaType = "WEA_STANDORT" // turbine site
	AreaPool        AreaType = "POOL"         // shared revenue-pool area
	AreaWeg         AreaType = "WEG"          // access road
	AreaKabel       AreaType = "KABEL"        // cable route
	AreaAusgleich   AreaType = "AUSGLEICH"    // ecological compensation
)

// Lease is a land-use contract between the park operator and a lessor.
// The lessor may be an individual or a company.
type Lease struct {
	ID              int64  `json:"id"`
	TenantID        int64  `json:"tenant_id"`
	ParkID          int64  `json:"park_id"`
	LessorID        int64  `json:"lessor_id"`
	LessorName      string `json:"lessor_name"`
	LessorIsCompany bool   `json:"lessor_is_company"`
	PaymentDay      int    `json:"payment_day"`
	Active          bool   `json:"active"`
}

// PlotArea is a cadastral land unit attached to a lease. AreaSqm or
// LengthM is populated depending on the area type; FixedCompensation,
// when set, bypasses rate-based computation entirely.
type PlotArea struct {
	ID                int64            `json:"id"`
	LeaseID           int64            `json:"lease_id"`
	AreaType          AreaType         `json:"area_type"`
	AreaSqm           decimal.Decimal  `json:"area_sqm"`
	LengthM           decimal.Decimal  `json:"length_m"`
	TurbineCount      int              `json:"turbine_count"`
	CadastralDistrict string           `json:"cadastral_district"`
	CadastralParcel   string           `json:"cadastral_parcel"`
	FixedCompensation *decimal.Decimal `json:"fixed_compensation,omitempty"`
}

// LeaseWithPlots bundles a lease with its plot areas for allocation.
type LeaseWithPlots struct {
	Lease Lease      `json:"lease"`
	Plots []PlotArea `json:"plots"`
}

// TurbineCount sums the turbine sites across the lease's WEA parcels.
func (l LeaseWithPlots) TurbineCount() int {
	var n int
	for _, p := range l.Plots {
		if p.AreaType == AreaWEAStandort {
			n += p.TurbineCount
		}
	}
	return n
}
