package invoicing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/parks"
	"github.com/pachtwerk/pachtwerk/internal/money"
	"github.com/pachtwerk/pachtwerk/internal/settlement/allocation"
	"github.com/pachtwerk/pachtwerk/internal/tax"
)

// lineNames are the German line captions used on credit notes.
var lineNames = map[articles.LineType]string{
	articles.LineMindestpacht:          "Mindestpacht",
	articles.LineJahresnutzungsentgelt: "Jahresnutzungsentgelt",
	articles.LineVorschussverrechnung:  "Verrechnung Pachtvorschuss",
	articles.LineZuwegung:              "Zuwegung",
	articles.LineKabeltrasse:           "Kabeltrasse",
	articles.LineAusgleich:             "Ausgleichsfläche",
}

// Generator turns allocation output into credit-note drafts for one
// park. It is constructed once per generation run with the run's
// resolved article and tax configuration.
type Generator struct {
	park     parks.Park
	articles map[articles.LineType]articles.Article
	rates    tax.RateTable
	printer  *message.Printer
}

// NewGenerator builds a Generator for a single run.
func NewGenerator(park parks.Park, arts map[articles.LineType]articles.Article, rates tax.RateTable) *Generator {
	return &Generator{
		park:     park,
		articles: arts,
		rates:    rates,
		printer:  message.NewPrinter(language.German),
	}
}

// BuildAdvance builds the provisional credit note for one lease from
// its installment lines. Returns nil when the lease's installment
// total is immaterial; such leases get no document at all.
func (g *Generator) BuildAdvance(la allocation.LeaseAllocation, lines []allocation.InstallmentLine, sp allocation.ServicePeriod, invoiceDate time.Time) (*Draft, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	draft := g.newDraft(la.Lease, invoiceDate, sp.Start, sp.End)
	for _, line := range lines {
		article, err := g.article(line.Parcel.LineType)
		if err != nil {
			return nil, err
		}
		split, err := tax.Calculate(line.Amount, article.TaxRate, g.rates)
		if err != nil {
			return nil, err
		}
		plotID := line.Parcel.Plot.ID
		draft.addItem(ItemDraft{
			Description:   fmt.Sprintf("%s, %s", sp.Label, g.parcelCaption(line.Parcel)),
			PlotAreaID:    &plotID,
			LineType:      line.Parcel.LineType,
			Quantity:      decimal.NewFromInt(1),
			Unit:          "pauschal",
			UnitPrice:     line.Amount,
			NetAmount:     line.Amount,
			TaxCategory:   split.Category,
			TaxRate:       split.Rate,
			TaxAmount:     split.Tax,
			GrossAmount:   split.Gross,
			LedgerAccount: article.LedgerAccount,
			IssueDate:     invoiceDate,
		})
	}
	if money.IsNegligible(draft.NetAmount) {
		return nil, nil
	}
	return draft, nil
}

// BuildFinal builds the year-end credit note for one lease: the full
// yearly allocation as positive lines plus one negative deduction line
// per previously issued advance item, preserving the advance line's
// description, tax rate and issue date so the netting reconciles to
// the cent. Returns nil when nothing remains after netting.
func (g *Generator) BuildFinal(la allocation.LeaseAllocation, year int, priorItems []InvoiceItem, invoiceDate time.Time) (*Draft, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	draft := g.newDraft(la.Lease, invoiceDate, start, end)

	for _, pa := range la.Parcels {
		if money.IsNegligible(pa.Amount) {
			continue
		}
		article, err := g.article(pa.LineType)
		if err != nil {
			return nil, err
		}
		split, err := tax.Calculate(pa.Amount, article.TaxRate, g.rates)
		if err != nil {
			return nil, err
		}
		plotID := pa.Plot.ID
		qty, unit, unitPrice := g.presentation(pa)
		draft.addItem(ItemDraft{
			Description:   fmt.Sprintf("%s %d, %s", lineNames[pa.LineType], year, g.parcelCaption(pa)),
			PlotAreaID:    &plotID,
			LineType:      pa.LineType,
			Quantity:      qty,
			Unit:          unit,
			UnitPrice:     unitPrice,
			NetAmount:     pa.Amount,
			TaxCategory:   split.Category,
			TaxRate:       split.Rate,
			TaxAmount:     split.Tax,
			GrossAmount:   split.Gross,
			LedgerAccount: article.LedgerAccount,
			IssueDate:     invoiceDate,
		})
	}

	deductionArticle, err := g.article(articles.LineVorschussverrechnung)
	if err != nil {
		return nil, err
	}
	for _, item := range priorItems {
		itemID := item.ID
		draft.addItem(ItemDraft{
			Description:   item.Description,
			AdvanceItemID: &itemID,
			LineType:      articles.LineVorschussverrechnung,
			Quantity:      decimal.NewFromInt(1),
			Unit:          "pauschal",
			UnitPrice:     item.NetAmount.Neg(),
			NetAmount:     item.NetAmount.Neg(),
			TaxCategory:   item.TaxCategory,
			TaxRate:       item.TaxRate,
			TaxAmount:     item.TaxAmount.Neg(),
			GrossAmount:   item.GrossAmount.Neg(),
			LedgerAccount: deductionArticle.LedgerAccount,
			IssueDate:     item.IssueDate,
		})
	}

	if len(draft.Items) == 0 || money.IsNegligible(draft.NetAmount) {
		return nil, nil
	}
	return draft, nil
}

// CancellationDraft mirrors every line of the original document
// negated, linked back via CancelsInvoiceID by the caller.
func CancellationDraft(original Invoice, invoiceDate time.Time) *Draft {
	draft := &Draft{
		LeaseID:       original.LeaseID,
		RecipientID:   original.RecipientID,
		RecipientName: original.RecipientName,
		InvoiceDate:   invoiceDate,
		DueDate:       invoiceDate,
		ServiceStart:  original.ServiceStart,
		ServiceEnd:    original.ServiceEnd,
	}
	for _, item := range original.Items {
		draft.addItem(ItemDraft{
			Description:   fmt.Sprintf("Storno: %s", item.Description),
			PlotAreaID:    item.PlotAreaID,
			AdvanceItemID: item.AdvanceItemID,
			LineType:      item.LineType,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			UnitPrice:     item.UnitPrice.Neg(),
			NetAmount:     item.NetAmount.Neg(),
			TaxCategory:   item.TaxCategory,
			TaxRate:       item.TaxRate,
			TaxAmount:     item.TaxAmount.Neg(),
			GrossAmount:   item.GrossAmount.Neg(),
			LedgerAccount: item.LedgerAccount,
			IssueDate:     invoiceDate,
		})
	}
	return draft
}

func (g *Generator) newDraft(lease leases.Lease, invoiceDate time.Time, start, end time.Time) *Draft {
	return &Draft{
		LeaseID:       lease.ID,
		RecipientID:   lease.LessorID,
		RecipientName: lease.LessorName,
		InvoiceDate:   invoiceDate,
		DueDate:       DueDate(invoiceDate, lease.PaymentDay),
		ServiceStart:  start,
		ServiceEnd:    end,
	}
}

func (d *Draft) addItem(item ItemDraft) {
	item.Position = len(d.Items) + 1
	d.Items = append(d.Items, item)
	d.NetAmount = d.NetAmount.Add(item.NetAmount)
	d.TaxAmount = d.TaxAmount.Add(item.TaxAmount)
	d.GrossAmount = d.GrossAmount.Add(item.GrossAmount)
}

func (g *Generator) article(lt articles.LineType) (articles.Article, error) {
	article, ok := g.articles[lt]
	if !ok {
		return articles.Article{}, fmt.Errorf("invoicing: no settlement article for line type %q", lt)
	}
	return article, nil
}

// presentation derives quantity, unit and unit price by area type:
// m² for access roads and compensation areas billed per square meter,
// m for cable routes billed per meter, otherwise a lump sum of one.
func (g *Generator) presentation(pa allocation.ParcelAllocation) (decimal.Decimal, string, decimal.Decimal) {
	plot := pa.Plot
	if plot.FixedCompensation == nil {
		switch plot.AreaType {
		case leases.AreaWeg:
			if g.park.RatePerSqmWeg.IsPositive() && plot.AreaSqm.IsPositive() {
				return plot.AreaSqm, "m²", g.park.RatePerSqmWeg
			}
		case leases.AreaAusgleich:
			if g.park.RatePerSqmAusgleich.IsPositive() && plot.AreaSqm.IsPositive() {
				return plot.AreaSqm, "m²", g.park.RatePerSqmAusgleich
			}
		case leases.AreaKabel:
			if g.park.RatePerMeterKabel.IsPositive() && plot.LengthM.IsPositive() {
				return plot.LengthM, "m", g.park.RatePerMeterKabel
			}
		}
	}
	return decimal.NewFromInt(1), "pauschal", pa.Amount
}

// parcelCaption names a parcel on the document, e.g.
// "Zuwegung, Flurstück Nordfeld 12/3 (1.250,00 m²)".
func (g *Generator) parcelCaption(pa allocation.ParcelAllocation) string {
	plot := pa.Plot
	caption := fmt.Sprintf("Flurstück %s %s", plot.CadastralDistrict, plot.CadastralParcel)
	switch {
	case plot.AreaType == leases.AreaKabel && plot.LengthM.IsPositive():
		caption += g.printer.Sprintf(" (%.2f m)", plot.LengthM.InexactFloat64())
	case plot.AreaSqm.IsPositive():
		caption += g.printer.Sprintf(" (%.2f m²)", plot.AreaSqm.InexactFloat64())
	}
	return caption
}

// DueDate advances the invoice date to the lease's payment day,
// rolling into the following month when the invoice date already
// passed that day. The day is clamped to the target month's length.
func DueDate(invoiceDate time.Time, paymentDay int) time.Time {
	if paymentDay < 1 || paymentDay > 31 {
		return invoiceDate
	}
	year, month, day := invoiceDate.Date()
	if day > paymentDay {
		month++
	}
	due := time.Date(year, month, 1, 0, 0, 0, 0, invoiceDate.Location())
	lastDay := due.AddDate(0, 1, -1).Day()
	if paymentDay < lastDay {
		lastDay = paymentDay
	}
	return due.AddDate(0, 0, lastDay-1)
}
