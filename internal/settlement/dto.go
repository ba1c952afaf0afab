package settlement

import "github.com/shopspring/decimal"

// CreatePeriodRequest opens a settlement period. Advance periods need
// an interval; quarterly and monthly intervals also need the quarter or
// month index. Final periods carry the revenue figure to distribute.
type CreatePeriodRequest struct {
	ParkID             int64           `json:"park_id" validate:"required,gt=0"`
	Year               int             `json:"year" validate:"required,gte=2000,lte=2100"`
	PeriodType         string          `json:"period_type" validate:"required,oneof=ADVANCE FINAL"`
	Interval           string          `json:"interval" validate:"omitempty,oneof=YEARLY QUARTERLY MONTHLY"`
	Month              int             `json:"month" validate:"omitempty,gte=1,lte=12"`
	Label              string          `json:"label" validate:"omitempty,max=120"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	EnergySettlementID *int64          `json:"energy_settlement_id,omitempty"`
}

// GenerateRequest carries optional overrides for a generation run. An
// empty body keeps the period's stored figures.
type GenerateRequest struct {
	InvoiceDate        string           `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	TotalRevenue       *decimal.Decimal `json:"total_revenue,omitempty"`
	EnergySettlementID *int64           `json:"energy_settlement_id,omitempty"`
}

// ReviewRequest carries the reviewer verdict. Notes are mandatory on
// rejection, which the service enforces.
type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"max=2000"`
}

// CancelRequest abandons a period.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
