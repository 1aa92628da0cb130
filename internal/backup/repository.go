package backup

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads full tables for the snapshot. Strictly read-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// snapshot tables, in export order.
var tables = []string{
	"items",
	"purchase_orders",
	"purchase_order_lines",
	"dispatch_logs",
	"work_orders",
	"assembly_orders",
	"packaging_orders",
	"stock_ledger",
}

// DumpTable reads every row of a table as column-keyed maps.
func (r *Repository) DumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := r.pool.Query(ctx, `SELECT * FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fields))
		for i, f := range fields {
			record[f.Name] = values[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
