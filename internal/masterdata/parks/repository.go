package parks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pachtwerk/pachtwerk/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, tenantID, id int64) (Park, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Park, error) {
	var p Park
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name,
		       wea_share_pct, pool_share_pct,
		       minimum_rent_per_turbine,
		       rate_per_sqm_weg, rate_per_meter_kabel, rate_per_sqm_ausgleich
		FROM parks
		WHERE tenant_id = $1 AND id = $2`, tenantID, id).Scan(
		&p.ID, &p.TenantID, &p.Name,
		&p.WEASharePct, &p.PoolSharePct,
		&p.MinimumRentPerTurbine,
		&p.RatePerSqmWeg, &p.RatePerMeterKabel, &p.RatePerSqmAusgleich,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Park{}, shared.ErrNotFound
		}
		return Park{}, err
	}
	return p, nil
}
