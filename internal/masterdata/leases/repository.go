package leases

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, tenantID, id int64) (Lease, error)
	// ListActiveByPark returns the park's active leases with their plot
	// areas, the point-in-time snapshot a generation run computes from.
	ListActiveByPark(ctx context.Context, tenantID, parkID int64) ([]LeaseWithPlots, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Lease, error) {
	var l Lease
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, park_id, lessor_id, lessor_name, lessor_is_company, payment_day, active
		FROM leases
		WHERE tenant_id = $1 AND id = $2`, tenantID, id).Scan(
		&l.ID, &l.TenantID, &l.ParkID, &l.LessorID, &l.LessorName, &l.LessorIsCompany, &l.PaymentDay, &l.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lease{}, shared.ErrNotFound
		}
		return Lease{}, err
	}
	return l, nil
}

func (r *repository) ListActiveByPark(ctx context.Context, tenantID, parkID int64) ([]LeaseWithPlots, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, park_id, lessor_id, lessor_name, lessor_is_company, payment_day, active
		FROM leases
		WHERE tenant_id = $1 AND park_id = $2 AND active
		ORDER BY id`, tenantID, parkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaseWithPlots
	byLease := make(map[int64]int)
	for rows.Next() {
		var l Lease
		if err := rows.Scan(&l.ID, &l.TenantID, &l.ParkID, &l.LessorID, &l.LessorName, &l.LessorIsCompany, &l.PaymentDay, &l.Active); err != nil {
			return nil, err
		}
		byLease[l.ID] = len(result)
		result = append(result, LeaseWithPlots{Lease: l})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	plotRows, err := r.pool.Query(ctx, `
		SELECT pa.id, pa.lease_id, pa.area_type, pa.area_sqm, pa.length_m, pa.turbine_count,
		       pa.cadastral_district, pa.cadastral_parcel, pa.fixed_compensation
		FROM plot_areas pa
		JOIN leases l ON l.id = pa.lease_id
		WHERE l.tenant_id = $1 AND l.park_id = $2 AND l.active
		ORDER BY pa.lease_id, pa.id`, tenantID, parkID)
	if err != nil {
		return nil, err
	}
	defer plotRows.Close()

	for plotRows.Next() {
		var p PlotArea
		var areaSqm, lengthM, fixed pgtype.Numeric
		if err := plotRows.Scan(&p.ID, &p.LeaseID, &p.AreaType, &areaSqm, &lengthM, &p.TurbineCount,
			&p.CadastralDistrict, &p.CadastralParcel, &fixed); err != nil {
			return nil, err
		}
		p.AreaSqm = numericToDecimal(areaSqm)
		p.LengthM = numericToDecimal(lengthM)
		if fixed.Valid {
			d := numericToDecimal(fixed)
			p.FixedCompensation = &d
		}
		if idx, ok := byLease[p.LeaseID]; ok {
			result[idx].Plots = append(result[idx].Plots, p)
		}
	}
	return result, plotRows.Err()
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
