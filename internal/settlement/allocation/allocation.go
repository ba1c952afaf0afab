// Package allocation computes per-lease, per-parcel compensation for a
// park year: revenue shares for turbine-site and pool parcels, rate or
// override amounts for access roads, cable routes and ecological
// compensation areas, and the per-lease minimum-rent floor.
package allocation

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/parks"
	"github.com/pachtwerk/pachtwerk/internal/money"
)

// ParcelAllocation is the yearly amount allocated to one plot area.
type ParcelAllocation struct {
	Plot     leases.PlotArea   `json:"plot"`
	LineType articles.LineType `json:"line_type"`
	Amount   decimal.Decimal   `json:"amount"`
}

// LeaseAllocation aggregates a lease's parcel allocations and the
// minimum-rent comparison.
type LeaseAllocation struct {
	Lease             leases.Lease       `json:"lease"`
	Parcels           []ParcelAllocation `json:"parcels"`
	TotalRevenueShare decimal.Decimal    `json:"total_revenue_share"`
	TotalMinimumRent  decimal.Decimal    `json:"total_minimum_rent"`
	TotalPayment      decimal.Decimal    `json:"total_payment"`
	UsedMinimum       bool               `json:"used_minimum"`
}

// Result is the park-level allocation for one settlement year.
type Result struct {
	ParkID           int64             `json:"park_id"`
	ParkName         string            `json:"park_name"`
	Year             int               `json:"year"`
	WEASharePct      decimal.Decimal   `json:"wea_share_pct"`
	PoolSharePct     decimal.Decimal   `json:"pool_share_pct"`
	TotalRevenue     decimal.Decimal   `json:"total_revenue"`
	TotalMinimumRent decimal.Decimal   `json:"total_minimum_rent"`
	TotalActualRent  decimal.Decimal   `json:"total_actual_rent"`
	UsedMinimum      bool              `json:"used_minimum"`
	Leases           []LeaseAllocation `json:"leases"`
}

var hundred = decimal.NewFromInt(100)

// Calculate allocates totalRevenue across the park's leases. For
// advance periods (final=false) no revenue figure is available and the
// revenue-bearing parcels carry the minimum guarantee instead, so the
// floor binds by construction.
//
// Master data is a point-in-time snapshot: concurrent configuration
// edits during a run are not detected.
func Calculate(logger *slog.Logger, park parks.Park, lws []leases.LeaseWithPlots, final bool, year int, totalRevenue decimal.Decimal) Result {
	res := Result{
		ParkID:       park.ID,
		ParkName:     park.Name,
		Year:         year,
		WEASharePct:  park.WEASharePct,
		PoolSharePct: park.PoolSharePct,
		TotalRevenue: totalRevenue,
	}

	if final && !park.WEASharePct.Add(park.PoolSharePct).Equal(hundred) {
		logger.Warn("wea/pool share percentages do not sum to 100",
			slog.Int64("park_id", park.ID),
			slog.String("wea_share", park.WEASharePct.String()),
			slog.String("pool_share", park.PoolSharePct.String()))
	}

	// Park-wide denominators for the revenue split.
	var parkTurbines int64
	parkPoolSqm := decimal.Zero
	for _, lw := range lws {
		for _, p := range lw.Plots {
			switch p.AreaType {
			case leases.AreaWEAStandort:
				parkTurbines += int64(p.TurbineCount)
			case leases.AreaPool:
				parkPoolSqm = parkPoolSqm.Add(p.AreaSqm)
			}
		}
	}

	weaPot := money.Percent(totalRevenue, park.WEASharePct)
	poolPot := money.Percent(totalRevenue, park.PoolSharePct)

	for _, lw := range lws {
		la := allocateLease(logger, park, lw, final, weaPot, poolPot, parkTurbines, parkPoolSqm)
		res.TotalMinimumRent = res.TotalMinimumRent.Add(la.TotalMinimumRent)
		res.TotalActualRent = res.TotalActualRent.Add(la.TotalPayment)
		if la.UsedMinimum {
			res.UsedMinimum = true
		}
		res.Leases = append(res.Leases, la)
	}
	return res
}

func allocateLease(logger *slog.Logger, park parks.Park, lw leases.LeaseWithPlots, final bool, weaPot, poolPot decimal.Decimal, parkTurbines int64, parkPoolSqm decimal.Decimal) LeaseAllocation {
	la := LeaseAllocation{Lease: lw.Lease}
	la.TotalMinimumRent = park.MinimumRentPerTurbine.Mul(decimal.NewFromInt(int64(lw.TurbineCount())))

	revenueShare := decimal.Zero
	fixed := decimal.Zero

	for _, plot := range lw.Plots {
		lineType, err := articles.LineTypeForArea(plot.AreaType, final)
		if err != nil {
			// closed table, validated at startup; skip defensively
			logger.Warn("unmapped area type", slog.Int64("plot_area_id", plot.ID), slog.String("area_type", string(plot.AreaType)))
			continue
		}
		pa := ParcelAllocation{Plot: plot, LineType: lineType}

		switch plot.AreaType {
		case leases.AreaWEAStandort:
			if final {
				if parkTurbines > 0 {
					pa.Amount = money.RoundCents(weaPot.
						Mul(decimal.NewFromInt(int64(plot.TurbineCount))).
						Div(decimal.NewFromInt(parkTurbines)))
				}
				revenueShare = revenueShare.Add(pa.Amount)
			} else {
				pa.Amount = money.RoundCents(park.MinimumRentPerTurbine.Mul(decimal.NewFromInt(int64(plot.TurbineCount))))
			}
		case leases.AreaPool:
			if final && parkPoolSqm.IsPositive() {
				pa.Amount = money.RoundCents(poolPot.Mul(plot.AreaSqm).Div(parkPoolSqm))
				revenueShare = revenueShare.Add(pa.Amount)
			}
		case leases.AreaWeg:
			pa.Amount = rateOrOverride(logger, plot, park.RatePerSqmWeg, plot.AreaSqm)
			fixed = fixed.Add(pa.Amount)
		case leases.AreaKabel:
			pa.Amount = rateOrOverride(logger, plot, park.RatePerMeterKabel, plot.LengthM)
			fixed = fixed.Add(pa.Amount)
		case leases.AreaAusgleich:
			pa.Amount = rateOrOverride(logger, plot, park.RatePerSqmAusgleich, plot.AreaSqm)
			fixed = fixed.Add(pa.Amount)
		}
		la.Parcels = append(la.Parcels, pa)
	}

	la.TotalRevenueShare = revenueShare
	if revenueShare.LessThan(la.TotalMinimumRent) {
		// The guarantee is binding: revenue-bearing lines are replaced
		// by per-turbine minimum lines so the parcel sum equals the
		// floor to the cent. Pool lines drop to zero.
		la.UsedMinimum = true
		for i, pa := range la.Parcels {
			switch pa.Plot.AreaType {
			case leases.AreaWEAStandort:
				la.Parcels[i].Amount = money.RoundCents(park.MinimumRentPerTurbine.Mul(decimal.NewFromInt(int64(pa.Plot.TurbineCount))))
			case leases.AreaPool:
				la.Parcels[i].Amount = decimal.Zero
			}
		}
		la.TotalPayment = la.TotalMinimumRent.Add(fixed)
	} else {
		la.TotalPayment = revenueShare.Add(fixed)
	}
	return la
}

// rateOrOverride applies a parcel's fixed compensation override when
// present, otherwise rate × measure. A parcel with neither yields zero;
// that is a data-quality signal, not an error.
func rateOrOverride(logger *slog.Logger, plot leases.PlotArea, rate, measure decimal.Decimal) decimal.Decimal {
	if plot.FixedCompensation != nil {
		return money.RoundCents(*plot.FixedCompensation)
	}
	if rate.IsPositive() && measure.IsPositive() {
		return money.RoundCents(rate.Mul(measure))
	}
	logger.Warn("plot area without compensation rate or override, allocating zero",
		slog.Int64("plot_area_id", plot.ID),
		slog.String("area_type", string(plot.AreaType)))
	return decimal.Zero
}
