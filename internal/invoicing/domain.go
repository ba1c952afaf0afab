// Package invoicing owns credit-note documents: generation from
// allocation output, gap-free number allocation and atomic
// per-document persistence. Documents are immutable once written;
// corrections happen through linked cancellation documents.
package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/tax"
)

// DocumentType enumerates document kinds sharing a number sequence.
type DocumentType string

const (
	DocCreditNote   DocumentType = "CREDIT_NOTE"
	DocCancellation DocumentType = "CANCELLATION"
)

// Invoice is a lessor-favoring credit note generated for one lease in
// one settlement period.
type Invoice struct {
	ID               int64           `json:"id"`
	TenantID         int64           `json:"tenant_id"`
	PeriodID         int64           `json:"period_id"`
	LeaseID          int64           `json:"lease_id"`
	Number           string          `json:"number"`
	DocumentType     DocumentType    `json:"document_type"`
	RecipientID      int64           `json:"recipient_id"`
	RecipientName    string          `json:"recipient_name"`
	InvoiceDate      time.Time       `json:"invoice_date"`
	DueDate          time.Time       `json:"due_date"`
	ServiceStart     time.Time       `json:"service_start"`
	ServiceEnd       time.Time       `json:"service_end"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	CancelsInvoiceID *int64          `json:"cancels_invoice_id,omitempty"`
	CreatedBy        int64           `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	Items            []InvoiceItem   `json:"items,omitempty"`
}

// InvoiceItem is a single credit-note line. A positive allocation line
// references its plot area; a deduction line references the advance
// item it nets out.
type InvoiceItem struct {
	ID            int64             `json:"id"`
	InvoiceID     int64             `json:"invoice_id"`
	Position      int               `json:"position"`
	Description   string            `json:"description"`
	PlotAreaID    *int64            `json:"plot_area_id,omitempty"`
	AdvanceItemID *int64            `json:"advance_item_id,omitempty"`
	LineType      articles.LineType `json:"line_type"`
	Quantity      decimal.Decimal   `json:"quantity"`
	Unit          string            `json:"unit"`
	UnitPrice     decimal.Decimal   `json:"unit_price"`
	NetAmount     decimal.Decimal   `json:"net_amount"`
	TaxCategory   tax.Category      `json:"tax_category"`
	TaxRate       decimal.Decimal   `json:"tax_rate"`
	TaxAmount     decimal.Decimal   `json:"tax_amount"`
	GrossAmount   decimal.Decimal   `json:"gross_amount"`
	LedgerAccount string            `json:"ledger_account"`
	IssueDate     time.Time         `json:"issue_date"`
}

// Draft is a credit note before numbering and persistence.
type Draft struct {
	LeaseID       int64
	RecipientID   int64
	RecipientName string
	InvoiceDate   time.Time
	DueDate       time.Time
	ServiceStart  time.Time
	ServiceEnd    time.Time
	Items         []ItemDraft
	NetAmount     decimal.Decimal
	TaxAmount     decimal.Decimal
	GrossAmount   decimal.Decimal
}

// ItemDraft is a line before persistence.
type ItemDraft struct {
	Position      int
	Description   string
	PlotAreaID    *int64
	AdvanceItemID *int64
	LineType      articles.LineType
	Quantity      decimal.Decimal
	Unit          string
	UnitPrice     decimal.Decimal
	NetAmount     decimal.Decimal
	TaxCategory   tax.Category
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	GrossAmount   decimal.Decimal
	LedgerAccount string
	IssueDate     time.Time
}
