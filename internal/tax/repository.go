package tax

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ConfigRepository loads tenant tax rate configuration.
type ConfigRepository interface {
	RatesForTenant(ctx context.Context, tenantID int64) (RateTable, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed config repository.
func NewRepository(pool *pgxpool.Pool) ConfigRepository {
	return &repository{pool: pool}
}

// RatesForTenant returns the tenant's configured table, falling back to
// DefaultRates for categories the tenant has not configured.
func (r *repository) RatesForTenant(ctx context.Context, tenantID int64) (RateTable, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, rate FROM tax_rate_configs WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := DefaultRates()
	for rows.Next() {
		var category string
		var rate decimal.Decimal
		if err := rows.Scan(&category, &rate); err != nil {
			return nil, err
		}
		table[Category(category)] = rate
	}
	return table, rows.Err()
}
