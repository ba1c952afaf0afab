// Package report renders settlement documents to PDF through a
// Gotenberg sidecar.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pachtwerk/pachtwerk/internal/invoicing"
)

const creditNoteTemplate = `<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 11px; margin: 2.5cm 2cm; }
h1 { font-size: 16px; }
table { width: 100%; border-collapse: collapse; margin-top: 1em; }
th, td { padding: 4px 6px; text-align: right; }
th { border-bottom: 1px solid #333; }
td.desc, th.desc { text-align: left; }
tr.total td { border-top: 1px solid #333; font-weight: bold; }
.meta { margin-top: 1em; }
.meta td { text-align: left; padding: 1px 8px 1px 0; }
</style>
</head>
<body>
<h1>{{.Title}} {{.Number}}</h1>
<table class="meta">
<tr><td>Empfänger</td><td>{{.Recipient}}</td></tr>
<tr><td>Belegdatum</td><td>{{.InvoiceDate}}</td></tr>
<tr><td>Fälligkeit</td><td>{{.DueDate}}</td></tr>
<tr><td>Leistungszeitraum</td><td>{{.ServicePeriod}}</td></tr>
</table>
<table>
<tr><th>Pos.</th><th class="desc">Beschreibung</th><th>Menge</th><th>Einheit</th><th>Einzelpreis</th><th>Netto</th><th>USt.</th><th>Brutto</th></tr>
{{range .Lines}}
<tr><td>{{.Position}}</td><td class="desc">{{.Description}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td><td>{{.UnitPrice}}</td><td>{{.Net}}</td><td>{{.TaxRate}}</td><td>{{.Gross}}</td></tr>
{{end}}
<tr class="total"><td colspan="5">Summe</td><td>{{.NetTotal}}</td><td>{{.TaxTotal}}</td><td>{{.GrossTotal}}</td></tr>
</table>
</body>
</html>`

// Renderer turns issued credit notes into PDF documents.
type Renderer struct {
	client  *Client
	tmpl    *template.Template
	printer *message.Printer
}

// NewRenderer constructs a Renderer backed by the given Gotenberg client.
func NewRenderer(client *Client) *Renderer {
	return &Renderer{
		client:  client,
		tmpl:    template.Must(template.New("creditnote").Parse(creditNoteTemplate)),
		printer: message.NewPrinter(language.German),
	}
}

type documentView struct {
	Title         string
	Number        string
	Recipient     string
	InvoiceDate   string
	DueDate       string
	ServicePeriod string
	Lines         []lineView
	NetTotal      string
	TaxTotal      string
	GrossTotal    string
}

type lineView struct {
	Position    int
	Description string
	Quantity    string
	Unit        string
	UnitPrice   string
	Net         string
	TaxRate     string
	Gross       string
}

// RenderCreditNote renders the document to PDF.
func (r *Renderer) RenderCreditNote(ctx context.Context, inv invoicing.Invoice) ([]byte, error) {
	html, err := r.buildHTML(inv)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}

func (r *Renderer) buildHTML(inv invoicing.Invoice) (string, error) {
	view := documentView{
		Title:         documentTitle(inv.DocumentType),
		Number:        inv.Number,
		Recipient:     inv.RecipientName,
		InvoiceDate:   inv.InvoiceDate.Format("02.01.2006"),
		DueDate:       inv.DueDate.Format("02.01.2006"),
		ServicePeriod: fmt.Sprintf("%s bis %s", inv.ServiceStart.Format("02.01.2006"), inv.ServiceEnd.Format("02.01.2006")),
		NetTotal:      r.euro(inv.NetAmount),
		TaxTotal:      r.euro(inv.TaxAmount),
		GrossTotal:    r.euro(inv.GrossAmount),
	}
	for _, item := range inv.Items {
		view.Lines = append(view.Lines, lineView{
			Position:    item.Position,
			Description: item.Description,
			Quantity:    r.amount(item.Quantity),
			Unit:        item.Unit,
			UnitPrice:   r.euro(item.UnitPrice),
			Net:         r.euro(item.NetAmount),
			TaxRate:     r.percent(item.TaxRate),
			Gross:       r.euro(item.GrossAmount),
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func documentTitle(t invoicing.DocumentType) string {
	if t == invoicing.DocCancellation {
		return "Storno-Gutschrift"
	}
	return "Gutschrift"
}

func (r *Renderer) euro(d decimal.Decimal) string {
	return r.printer.Sprintf("%.2f €", d.InexactFloat64())
}

func (r *Renderer) amount(d decimal.Decimal) string {
	return r.printer.Sprintf("%.2f", d.InexactFloat64())
}

func (r *Renderer) percent(rate decimal.Decimal) string {
	return r.printer.Sprintf("%.0f %%", rate.InexactFloat64())
}
