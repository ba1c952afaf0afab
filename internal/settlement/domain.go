// Package settlement orchestrates the lease settlement lifecycle: a
// period is opened per park and year, calculated, turned into credit
// notes, reviewed under four-eyes and closed. Advance periods bill the
// minimum guarantee in installments; the final period settles actual
// revenue against everything advanced.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/settlement/allocation"
)

// PeriodType distinguishes provisional from year-end settlement.
type PeriodType string

const (
	PeriodAdvance PeriodType = "ADVANCE"
	PeriodFinal   PeriodType = "FINAL"
)

// Status is the settlement period lifecycle state.
type Status string

const (
	StatusOpen           Status = "OPEN"
	StatusCalculated     Status = "CALCULATED"
	StatusAdvanceCreated Status = "ADVANCE_CREATED"
	StatusSettled        Status = "SETTLED"
	StatusPendingReview  Status = "PENDING_REVIEW"
	StatusApproved       Status = "APPROVED"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusClosed         Status = "CLOSED"
	StatusCancelled      Status = "CANCELLED"
)

// Period is one settlement run for a park and year. Advance periods
// additionally carry the installment interval and, for quarterly and
// monthly intervals, the quarter or month index.
type Period struct {
	ID       int64      `json:"id"`
	TenantID int64      `json:"tenant_id"`
	ParkID   int64      `json:"park_id"`
	Year     int        `json:"year"`
	Type     PeriodType `json:"period_type"`

	Interval allocation.Interval `json:"interval,omitempty"`
	Month    int                 `json:"month,omitempty"`

	Label  string `json:"label"`
	Status Status `json:"status"`

	// TotalRevenue is the park revenue being distributed; final periods
	// only. EnergySettlementID references the upstream revenue figure.
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalMinimumRent   decimal.Decimal `json:"total_minimum_rent"`
	TotalActualRent    decimal.Decimal `json:"total_actual_rent"`
	UsedMinimum        bool            `json:"used_minimum"`
	EnergySettlementID *int64          `json:"energy_settlement_id,omitempty"`

	CreatedBy    int64      `json:"created_by"`
	ReviewedBy   *int64     `json:"reviewed_by,omitempty"`
	ReviewNotes  string     `json:"review_notes,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Final reports whether the period settles actual revenue.
func (p Period) Final() bool {
	return p.Type == PeriodFinal
}
