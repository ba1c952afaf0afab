package articles

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListByPark(ctx context.Context, tenantID, parkID int64) ([]Article, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListByPark(ctx context.Context, tenantID, parkID int64) ([]Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT line_type, tax_rate, ledger_account
		FROM settlement_articles
		WHERE tenant_id = $1 AND park_id = $2
		ORDER BY line_type`, tenantID, parkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.Type, &a.TaxRate, &a.LedgerAccount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
