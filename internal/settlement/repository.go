package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/settlement/allocation"
	"github.com/pachtwerk/pachtwerk/internal/shared"
)

// ErrStatusConflict signals that a compare-and-set status update found
// the period in a different state, typically a concurrent actor.
var ErrStatusConflict = errors.New("settlement: period status changed concurrently")

// Totals is the calculated aggregate written back to the period.
type Totals struct {
	TotalMinimumRent decimal.Decimal
	TotalActualRent  decimal.Decimal
	UsedMinimum      bool
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	ParkID int64
	Year   int
	Status Status
}

// Review carries the outcome of a four-eyes review.
type Review struct {
	ReviewedBy int64
	Notes      string
	At         time.Time
}

type Repository interface {
	Create(ctx context.Context, p *Period) error
	Get(ctx context.Context, tenantID, id int64) (*Period, error)
	List(ctx context.Context, tenantID int64, filter ListFilter) ([]Period, error)
	// UpdateStatus moves the period from exactly `from` to `to` and
	// returns ErrStatusConflict when the row is no longer in `from`.
	UpdateStatus(ctx context.Context, tenantID, id int64, from, to Status) error
	UpdateTotals(ctx context.Context, tenantID, id int64, totals Totals) error
	// UpdateRevenue replaces the revenue basis of a FINAL period before
	// the settlement run recomputes from it.
	UpdateRevenue(ctx context.Context, tenantID, id int64, revenue decimal.Decimal, energySettlementID *int64) error
	// RecordReview stores the reviewer verdict together with the status
	// move out of PENDING_REVIEW, in one statement.
	RecordReview(ctx context.Context, tenantID, id int64, to Status, review Review) error
	Cancel(ctx context.Context, tenantID, id int64, from Status, reason string) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, p *Period) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO settlement_periods (
			tenant_id, park_id, year, period_type, advance_interval, month,
			label, status, total_revenue, energy_settlement_id,
			created_by, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
		RETURNING id, created_at, updated_at`,
		p.TenantID, p.ParkID, p.Year, string(p.Type), nullString(string(p.Interval)), p.Month,
		p.Label, string(p.Status), p.TotalRevenue, int8OrNull(p.EnergySettlementID),
		p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

const periodColumns = `
	id, tenant_id, park_id, year, period_type, advance_interval, month,
	label, status, total_revenue, total_minimum_rent, total_actual_rent,
	used_minimum, energy_settlement_id, created_by, reviewed_by,
	review_notes, reviewed_at, cancel_reason, created_at, updated_at`

func (r *repository) Get(ctx context.Context, tenantID, id int64) (*Period, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+periodColumns+`
		FROM settlement_periods
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, tenantID int64, filter ListFilter) ([]Period, error) {
	query := `SELECT ` + periodColumns + ` FROM settlement_periods WHERE tenant_id = $1`
	args := []any{tenantID}
	argNum := 2

	if filter.ParkID > 0 {
		query += fmt.Sprintf(" AND park_id = $%d", argNum)
		args = append(args, filter.ParkID)
		argNum++
	}
	if filter.Year > 0 {
		query += fmt.Sprintf(" AND year = $%d", argNum)
		args = append(args, filter.Year)
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY year DESC, park_id, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, tenantID, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlement_periods
		SET status = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status = $3`,
		tenantID, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *repository) UpdateTotals(ctx context.Context, tenantID, id int64, totals Totals) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlement_periods
		SET total_minimum_rent = $3, total_actual_rent = $4, used_minimum = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, totals.TotalMinimumRent, totals.TotalActualRent, totals.UsedMinimum)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateRevenue(ctx context.Context, tenantID, id int64, revenue decimal.Decimal, energySettlementID *int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlement_periods
		SET total_revenue = $3, energy_settlement_id = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, revenue, int8OrNull(energySettlementID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) RecordReview(ctx context.Context, tenantID, id int64, to Status, review Review) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlement_periods
		SET status = $3, reviewed_by = $4, review_notes = $5, reviewed_at = $6, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status = $7`,
		tenantID, id, string(to), review.ReviewedBy, review.Notes, review.At, string(StatusPendingReview))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *repository) Cancel(ctx context.Context, tenantID, id int64, from Status, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlement_periods
		SET status = $3, cancel_reason = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status = $5`,
		tenantID, id, string(StatusCancelled), reason, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func scanPeriod(row pgx.Row) (*Period, error) {
	var p Period
	var interval pgtype.Text
	var revenue, minRent, actualRent pgtype.Numeric
	var energyID, reviewedBy pgtype.Int8
	var reviewNotes, cancelReason pgtype.Text
	var reviewedAt pgtype.Timestamptz
	err := row.Scan(
		&p.ID, &p.TenantID, &p.ParkID, &p.Year, &p.Type, &interval, &p.Month,
		&p.Label, &p.Status, &revenue, &minRent, &actualRent,
		&p.UsedMinimum, &energyID, &p.CreatedBy, &reviewedBy,
		&reviewNotes, &reviewedAt, &cancelReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if interval.Valid {
		p.Interval = allocation.Interval(interval.String)
	}
	p.TotalRevenue = numericToDecimal(revenue)
	p.TotalMinimumRent = numericToDecimal(minRent)
	p.TotalActualRent = numericToDecimal(actualRent)
	if energyID.Valid {
		p.EnergySettlementID = &energyID.Int64
	}
	if reviewedBy.Valid {
		p.ReviewedBy = &reviewedBy.Int64
	}
	if reviewNotes.Valid {
		p.ReviewNotes = reviewNotes.String
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	if cancelReason.Valid {
		p.CancelReason = cancelReason.String
	}
	return &p, nil
}

func nullString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func int8OrNull(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
