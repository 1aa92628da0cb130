package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the read-only report aggregates. Reports tolerate rows
// being appended concurrently; each query is an independent snapshot.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SKUTotal is one SKU's aggregate over a window.
type SKUTotal struct {
	SKU      string
	ItemName string
	Qty      int64
}

// PlannedBySKU sums planned work order quantity per SKU over the window.
// Falls back to the remaining qty when planned_qty was never recorded.
func (r *Repository) PlannedBySKU(ctx context.Context, start, end time.Time) ([]SKUTotal, error) {
	return r.skuTotals(ctx, `
		SELECT i.sku, i.name, SUM(s.q)::bigint
		FROM (
			SELECT w.item_id,
			       CASE WHEN COALESCE(w.planned_qty, 0) > 0 THEN w.planned_qty ELSE COALESCE(w.qty, 0) END AS q
			FROM work_orders w
			WHERE w.created_at >= $1 AND w.created_at <= $2
		) s
		JOIN items i ON i.id = s.item_id
		WHERE s.q > 0
		GROUP BY i.sku, i.name`, start, end)
}

// ProducedBySKU sums packed quantity of completed packaging orders per SKU.
func (r *Repository) ProducedBySKU(ctx context.Context, start, end time.Time) ([]SKUTotal, error) {
	return r.skuTotals(ctx, `
		SELECT i.sku, i.name, SUM(p.qty_packed)::bigint
		FROM packaging_orders p
		JOIN items i ON i.id = p.item_id
		WHERE p.status = 'DONE' AND p.completed_at IS NOT NULL AND p.completed_at >= $1 AND p.completed_at <= $2
		GROUP BY i.sku, i.name`, start, end)
}

// RejectedBySKU sums QC-rejected quantity from dispatch logs per SKU.
func (r *Repository) RejectedBySKU(ctx context.Context, start, end time.Time) ([]SKUTotal, error) {
	return r.skuTotals(ctx, `
		SELECT d.sku, COALESCE(MAX(i.name), ''), SUM(d.rejected_qty)::bigint
		FROM dispatch_logs d
		LEFT JOIN items i ON i.sku = d.sku
		WHERE d.sku <> '' AND d.created_at >= $1 AND d.created_at <= $2
		GROUP BY d.sku`, start, end)
}

// DispatchTotals sums dispatched and rejected quantity over the window.
func (r *Repository) DispatchTotals(ctx context.Context, start, end time.Time) (dispatched, rejected int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(dispatch_qty), 0)::bigint, COALESCE(SUM(rejected_qty), 0)::bigint
		FROM dispatch_logs
		WHERE created_at >= $1 AND created_at <= $2`, start, end).Scan(&dispatched, &rejected)
	return dispatched, rejected, err
}

// ProducedTotal sums packed quantity of completed packaging orders.
func (r *Repository) ProducedTotal(ctx context.Context, start, end time.Time) (int64, error) {
	var produced int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty_packed), 0)::bigint
		FROM packaging_orders
		WHERE status = 'DONE' AND completed_at IS NOT NULL AND completed_at >= $1 AND completed_at <= $2`,
		start, end).Scan(&produced)
	return produced, err
}

func (r *Repository) skuTotals(ctx context.Context, query string, args ...any) ([]SKUTotal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []SKUTotal
	for rows.Next() {
		var t SKUTotal
		if err := rows.Scan(&t.SKU, &t.ItemName, &t.Qty); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
