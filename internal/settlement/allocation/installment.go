package allocation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/money"
)

// Interval is the advance installment cadence.
type Interval string

const (
	IntervalYearly    Interval = "YEARLY"
	IntervalQuarterly Interval = "QUARTERLY"
	IntervalMonthly   Interval = "MONTHLY"
)

// Divisor returns how many installments a year is split into.
func (i Interval) Divisor() (int, error) {
	switch i {
	case IntervalYearly:
		return 1, nil
	case IntervalQuarterly:
		return 4, nil
	case IntervalMonthly:
		return 12, nil
	default:
		return 0, fmt.Errorf("allocation: unknown advance interval %q", i)
	}
}

// ServicePeriod is the calendar range an advance installment covers.
type ServicePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// IntervalServicePeriod derives the service date range and human label
// for the given year and interval. month carries the quarter index
// (1-4) for quarterly and the month (1-12) for monthly intervals.
func IntervalServicePeriod(year int, interval Interval, month int) (ServicePeriod, error) {
	switch interval {
	case IntervalYearly:
		return ServicePeriod{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
			Label: fmt.Sprintf("Pachtvorschuss %d", year),
		}, nil
	case IntervalQuarterly:
		if month < 1 || month > 4 {
			return ServicePeriod{}, fmt.Errorf("allocation: quarter index %d out of range 1-4", month)
		}
		start := time.Date(year, time.Month((month-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return ServicePeriod{
			Start: start,
			End:   start.AddDate(0, 3, -1),
			Label: fmt.Sprintf("Pachtvorschuss Q%d/%d", month, year),
		}, nil
	case IntervalMonthly:
		if month < 1 || month > 12 {
			return ServicePeriod{}, fmt.Errorf("allocation: month %d out of range 1-12", month)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return ServicePeriod{
			Start: start,
			End:   start.AddDate(0, 1, -1),
			Label: fmt.Sprintf("Pachtvorschuss %02d/%d", month, year),
		}, nil
	default:
		return ServicePeriod{}, fmt.Errorf("allocation: unknown advance interval %q", interval)
	}
}

// InstallmentLine is one parcel's share of a single advance interval.
type InstallmentLine struct {
	Parcel ParcelAllocation `json:"parcel"`
	Amount decimal.Decimal  `json:"amount"`
}

// SplitInstallments divides a lease's yearly parcel allocations by the
// interval divisor. Lines that round below the materiality threshold
// are dropped, not zero-filled.
func SplitInstallments(la LeaseAllocation, interval Interval) ([]InstallmentLine, error) {
	divisor, err := interval.Divisor()
	if err != nil {
		return nil, err
	}
	div := decimal.NewFromInt(int64(divisor))

	var lines []InstallmentLine
	for _, pa := range la.Parcels {
		amount := money.RoundCents(pa.Amount.Div(div))
		if money.IsNegligible(amount) {
			continue
		}
		lines = append(lines, InstallmentLine{Parcel: pa, Amount: amount})
	}
	return lines, nil
}
