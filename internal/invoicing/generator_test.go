package invoicing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/parks"
	"github.com/pachtwerk/pachtwerk/internal/settlement/allocation"
	"github.com/pachtwerk/pachtwerk/internal/tax"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testPark() parks.Park {
	return parks.Park{
		ID:                    1,
		TenantID:              1,
		Name:                  "Windpark Nordfeld",
		WEASharePct:           dec("10"),
		PoolSharePct:          dec("90"),
		MinimumRentPerTurbine: dec("10000"),
		RatePerSqmWeg:         dec("0.35"),
		RatePerMeterKabel:     dec("2.50"),
		RatePerSqmAusgleich:   dec("0.10"),
	}
}

func testLease() leases.Lease {
	return leases.Lease{
		ID:         5,
		TenantID:   1,
		ParkID:     1,
		LessorID:   9,
		LessorName: "Heinrich Petersen",
		PaymentDay: 15,
		Active:     true,
	}
}

func testGenerator() *Generator {
	return NewGenerator(testPark(), articles.Resolve(nil), tax.DefaultRates())
}

func weaParcel(amount string) allocation.ParcelAllocation {
	return allocation.ParcelAllocation{
		Plot: leases.PlotArea{
			ID:                100,
			LeaseID:           5,
			AreaType:          leases.AreaWEAStandort,
			TurbineCount:      1,
			CadastralDistrict: "Nordfeld",
			CadastralParcel:   "12/3",
		},
		LineType: articles.LineMindestpacht,
		Amount:   dec(amount),
	}
}

func TestBuildAdvanceCreatesDraft(t *testing.T) {
	g := testGenerator()
	la := allocation.LeaseAllocation{
		Lease:   testLease(),
		Parcels: []allocation.ParcelAllocation{weaParcel("10000")},
	}
	lines, err := allocation.SplitInstallments(la, allocation.IntervalMonthly)
	require.NoError(t, err)
	sp, err := allocation.IntervalServicePeriod(2025, allocation.IntervalMonthly, 3)
	require.NoError(t, err)

	invoiceDate := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	draft, err := g.BuildAdvance(la, lines, sp, invoiceDate)
	require.NoError(t, err)
	require.NotNil(t, draft)

	require.Equal(t, int64(5), draft.LeaseID)
	require.Equal(t, int64(9), draft.RecipientID)
	require.Equal(t, "Heinrich Petersen", draft.RecipientName)
	require.Equal(t, sp.Start, draft.ServiceStart)
	require.Equal(t, sp.End, draft.ServiceEnd)
	require.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), draft.DueDate)

	require.Len(t, draft.Items, 1)
	item := draft.Items[0]
	require.Equal(t, 1, item.Position)
	require.Contains(t, item.Description, "Pachtvorschuss 03/2025")
	require.Contains(t, item.Description, "Flurstück Nordfeld 12/3")
	require.Equal(t, articles.LineMindestpacht, item.LineType)
	require.Equal(t, "pauschal", item.Unit)
	require.True(t, item.Quantity.Equal(decimal.NewFromInt(1)))
	require.True(t, item.NetAmount.Equal(dec("833.33")), "net %s", item.NetAmount)
	require.True(t, item.TaxAmount.Equal(dec("158.33")), "tax %s", item.TaxAmount)
	require.True(t, item.GrossAmount.Equal(dec("991.66")), "gross %s", item.GrossAmount)
	require.Equal(t, "6310", item.LedgerAccount)

	require.True(t, draft.NetAmount.Equal(dec("833.33")))
	require.True(t, draft.GrossAmount.Equal(draft.NetAmount.Add(draft.TaxAmount)))
}

func TestBuildAdvanceSkipsEmpty(t *testing.T) {
	g := testGenerator()
	la := allocation.LeaseAllocation{Lease: testLease()}
	sp, err := allocation.IntervalServicePeriod(2025, allocation.IntervalYearly, 0)
	require.NoError(t, err)

	draft, err := g.BuildAdvance(la, nil, sp, time.Now())
	require.NoError(t, err)
	require.Nil(t, draft)
}

func TestBuildFinalNetsAdvanceItems(t *testing.T) {
	g := testGenerator()
	la := allocation.LeaseAllocation{
		Lease: testLease(),
		Parcels: []allocation.ParcelAllocation{{
			Plot:     weaParcel("0").Plot,
			LineType: articles.LineJahresnutzungsentgelt,
			Amount:   dec("12000"),
		}},
	}

	// twelve monthly advance items of 833.33 net were issued earlier
	var prior []InvoiceItem
	for m := 1; m <= 12; m++ {
		prior = append(prior, InvoiceItem{
			ID:          int64(200 + m),
			Description: "Pachtvorschuss 2025, Flurstück Nordfeld 12/3",
			LineType:    articles.LineMindestpacht,
			NetAmount:   dec("833.33"),
			TaxCategory: tax.CategoryStandard,
			TaxRate:     dec("19"),
			TaxAmount:   dec("158.33"),
			GrossAmount: dec("991.66"),
			IssueDate:   time.Date(2025, time.Month(m), 1, 0, 0, 0, 0, time.UTC),
		})
	}

	invoiceDate := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	draft, err := g.BuildFinal(la, 2025, prior, invoiceDate)
	require.NoError(t, err)
	require.NotNil(t, draft)

	require.Len(t, draft.Items, 13)

	// 12000 yearly minus 12 x 833.33 already advanced
	require.True(t, draft.NetAmount.Equal(dec("2000.04")), "net %s", draft.NetAmount)
	require.True(t, draft.GrossAmount.Equal(draft.NetAmount.Add(draft.TaxAmount)))

	positive := draft.Items[0]
	require.Equal(t, articles.LineJahresnutzungsentgelt, positive.LineType)
	require.Contains(t, positive.Description, "Jahresnutzungsentgelt 2025")
	require.True(t, positive.NetAmount.Equal(dec("12000")))

	deduction := draft.Items[1]
	require.Equal(t, articles.LineVorschussverrechnung, deduction.LineType)
	require.NotNil(t, deduction.AdvanceItemID)
	require.Equal(t, int64(201), *deduction.AdvanceItemID)
	require.Equal(t, prior[0].Description, deduction.Description)
	require.Equal(t, prior[0].IssueDate, deduction.IssueDate)
	require.True(t, deduction.NetAmount.Equal(dec("-833.33")))
	require.True(t, deduction.TaxAmount.Equal(dec("-158.33")))
	require.True(t, deduction.GrossAmount.Equal(dec("-991.66")))
}

func TestBuildFinalSkipsFullyNetted(t *testing.T) {
	g := testGenerator()
	la := allocation.LeaseAllocation{
		Lease: testLease(),
		Parcels: []allocation.ParcelAllocation{{
			Plot:     weaParcel("0").Plot,
			LineType: articles.LineJahresnutzungsentgelt,
			Amount:   dec("10000"),
		}},
	}
	// four quarterly advances of 2500 net the year out exactly
	var prior []InvoiceItem
	for q := 1; q <= 4; q++ {
		prior = append(prior, InvoiceItem{
			ID:          int64(300 + q),
			Description: "Pachtvorschuss 2025",
			NetAmount:   dec("2500"),
			TaxRate:     dec("19"),
			TaxAmount:   dec("475"),
			GrossAmount: dec("2975"),
		})
	}

	draft, err := g.BuildFinal(la, 2025, prior, time.Now())
	require.NoError(t, err)
	require.Nil(t, draft)
}

func TestBuildFinalUsesMeasuredQuantities(t *testing.T) {
	g := testGenerator()
	la := allocation.LeaseAllocation{
		Lease: testLease(),
		Parcels: []allocation.ParcelAllocation{
			{
				Plot: leases.PlotArea{
					ID:                101,
					AreaType:          leases.AreaWeg,
					AreaSqm:           dec("1250"),
					CadastralDistrict: "Nordfeld",
					CadastralParcel:   "14/1",
				},
				LineType: articles.LineZuwegung,
				Amount:   dec("437.50"),
			},
			{
				Plot: leases.PlotArea{
					ID:                102,
					AreaType:          leases.AreaKabel,
					LengthM:           dec("300"),
					CadastralDistrict: "Nordfeld",
					CadastralParcel:   "14/2",
				},
				LineType: articles.LineKabeltrasse,
				Amount:   dec("750"),
			},
		},
	}

	draft, err := g.BuildFinal(la, 2025, nil, time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, draft)
	require.Len(t, draft.Items, 2)

	weg := draft.Items[0]
	require.Equal(t, "m²", weg.Unit)
	require.True(t, weg.Quantity.Equal(dec("1250")))
	require.True(t, weg.UnitPrice.Equal(dec("0.35")))
	require.Equal(t, "6318", weg.LedgerAccount)

	kabel := draft.Items[1]
	require.Equal(t, "m", kabel.Unit)
	require.True(t, kabel.Quantity.Equal(dec("300")))
	require.True(t, kabel.UnitPrice.Equal(dec("2.50")))
}

func TestBuildFinalLumpSumForOverride(t *testing.T) {
	g := testGenerator()
	override := dec("999")
	la := allocation.LeaseAllocation{
		Lease: testLease(),
		Parcels: []allocation.ParcelAllocation{{
			Plot: leases.PlotArea{
				ID:                103,
				AreaType:          leases.AreaWeg,
				AreaSqm:           dec("1250"),
				FixedCompensation: &override,
				CadastralDistrict: "Nordfeld",
				CadastralParcel:   "15/1",
			},
			LineType: articles.LineZuwegung,
			Amount:   override,
		}},
	}

	draft, err := g.BuildFinal(la, 2025, nil, time.Now())
	require.NoError(t, err)
	require.NotNil(t, draft)
	item := draft.Items[0]
	require.Equal(t, "pauschal", item.Unit)
	require.True(t, item.Quantity.Equal(decimal.NewFromInt(1)))
	require.True(t, item.UnitPrice.Equal(override))
}

func TestCancellationDraftMirrorsNegated(t *testing.T) {
	original := Invoice{
		ID:            77,
		LeaseID:       5,
		RecipientID:   9,
		RecipientName: "Heinrich Petersen",
		ServiceStart:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		ServiceEnd:    time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		Items: []InvoiceItem{{
			ID:          501,
			Position:    1,
			Description: "Jahresnutzungsentgelt 2025, Flurstück Nordfeld 12/3",
			LineType:    articles.LineJahresnutzungsentgelt,
			Quantity:    decimal.NewFromInt(1),
			Unit:        "pauschal",
			UnitPrice:   dec("12000"),
			NetAmount:   dec("12000"),
			TaxRate:     dec("19"),
			TaxAmount:   dec("2280"),
			GrossAmount: dec("14280"),
		}},
	}

	invoiceDate := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)
	draft := CancellationDraft(original, invoiceDate)
	require.Len(t, draft.Items, 1)
	item := draft.Items[0]
	require.Contains(t, item.Description, "Storno:")
	require.True(t, item.NetAmount.Equal(dec("-12000")))
	require.True(t, item.TaxAmount.Equal(dec("-2280")))
	require.True(t, item.GrossAmount.Equal(dec("-14280")))
	require.True(t, draft.NetAmount.Equal(dec("-12000")))
	require.Equal(t, original.ServiceStart, draft.ServiceStart)
	require.Equal(t, original.ServiceEnd, draft.ServiceEnd)
}

func TestDueDate(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name       string
		invoice    time.Time
		paymentDay int
		want       time.Time
	}{
		{"same month", time.Date(2025, 3, 1, 0, 0, 0, 0, loc), 15, time.Date(2025, 3, 15, 0, 0, 0, 0, loc)},
		{"rolls forward", time.Date(2025, 3, 20, 0, 0, 0, 0, loc), 15, time.Date(2025, 4, 15, 0, 0, 0, 0, loc)},
		{"clamps to month end", time.Date(2025, 2, 1, 0, 0, 0, 0, loc), 31, time.Date(2025, 2, 28, 0, 0, 0, 0, loc)},
		{"year boundary", time.Date(2025, 12, 20, 0, 0, 0, 0, loc), 10, time.Date(2026, 1, 10, 0, 0, 0, 0, loc)},
		{"invalid day keeps invoice date", time.Date(2025, 3, 7, 0, 0, 0, 0, loc), 0, time.Date(2025, 3, 7, 0, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DueDate(tc.invoice, tc.paymentDay))
		})
	}
}
