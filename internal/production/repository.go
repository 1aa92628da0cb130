package production

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for work orders and the
// requirement planner. The planner aggregates demand and in-flight quantities
// across purchase order, assembly and packaging tables, so those reads live
// here too and run inside one transaction with the work order writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PlanItem is the slice of an item the planner needs.
type PlanItem struct {
	ID           int64
	Quantity     int64
	ReorderLevel int64
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	// Planner reads.
	ListPlanItems(ctx context.Context) ([]PlanItem, error)
	PendingDemand(ctx context.Context, net bool) (map[int64]int64, error)
	OpenWorkOrders(ctx context.Context) (map[int64][]WorkOrder, error)
	OpenAssemblyRemaining(ctx context.Context) (map[int64]int64, error)
	OpenPackagingRemaining(ctx context.Context) (map[int64]int64, error)
	// Planner writes.
	InsertWorkOrder(ctx context.Context, wo WorkOrder) (int64, error)
	ResizeWorkOrder(ctx context.Context, id int64, qty float64) error
	DeleteWorkOrder(ctx context.Context, id int64) error
	// Progress pipeline.
	GetWorkOrderForUpdate(ctx context.Context, id int64) (WorkOrder, error)
	UpdateWorkOrderProgress(ctx context.Context, id int64, qty float64, status Status, completedAt *time.Time) error
	InsertAssemblyOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error
	InsertPackagingOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const workOrderColumns = `id, item_id, qty, planned_qty, status, due_date, completed_at, created_at`

func scanWorkOrder(row pgx.Row) (WorkOrder, error) {
	var wo WorkOrder
	err := row.Scan(&wo.ID, &wo.ItemID, &wo.Qty, &wo.PlannedQty, &wo.Status, &wo.DueDate, &wo.CompletedAt, &wo.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, ErrWorkOrderNotFound
		}
		return WorkOrder{}, err
	}
	return wo, nil
}

// ListViews returns all work orders joined with their items, newest first.
func (r *Repository) ListViews(ctx context.Context) ([]WorkOrderView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, i.sku, i.name, w.qty, w.status
		FROM work_orders w
		JOIN items i ON i.id = w.item_id
		ORDER BY w.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []WorkOrderView
	for rows.Next() {
		var v WorkOrderView
		if err := rows.Scan(&v.ID, &v.SKU, &v.ItemName, &v.Quantity, &v.Status); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// Get fetches one work order.
func (r *Repository) Get(ctx context.Context, id int64) (WorkOrder, error) {
	return scanWorkOrder(r.pool.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id))
}

// GetItemBySKU resolves an item for work order creation.
func (r *Repository) GetItemBySKU(ctx context.Context, sku string) (int64, string, error) {
	var id int64
	var name string
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM items WHERE sku = $1`, sku).Scan(&id, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrItemNotFound
		}
		return 0, "", err
	}
	return id, name, nil
}

// GetItemName returns the display fields for a work order's item.
func (r *Repository) GetItemName(ctx context.Context, itemID int64) (string, string, error) {
	var sku, name string
	err := r.pool.QueryRow(ctx, `SELECT sku, name FROM items WHERE id = $1`, itemID).Scan(&sku, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrItemNotFound
		}
		return "", "", err
	}
	return sku, name, nil
}

// Delete removes a work order outside the planner path.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkOrderNotFound
	}
	return nil
}

func (r *txRepo) ListPlanItems(ctx context.Context) ([]PlanItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, quantity, reorder_level FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PlanItem
	for rows.Next() {
		var it PlanItem
		if err := rows.Scan(&it.ID, &it.Quantity, &it.ReorderLevel); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PendingDemand sums line quantities of PENDING_DISPATCH orders per item.
// The default counts the full original line qty; net switches to the
// remaining undispatched balance.
func (r *txRepo) PendingDemand(ctx context.Context, net bool) (map[int64]int64, error) {
	expr := `SUM(l.qty)`
	if net {
		expr = `SUM(GREATEST(0, l.qty - FLOOR(l.dispatched_qty)))`
	}
	rows, err := r.tx.Query(ctx, `
		SELECT l.item_id, `+expr+`
		FROM purchase_order_lines l
		JOIN purchase_orders o ON o.id = l.purchase_order_id
		WHERE o.status = 'PENDING_DISPATCH'
		GROUP BY l.item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	demand := make(map[int64]int64)
	for rows.Next() {
		var itemID, qty int64
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		demand[itemID] = qty
	}
	return demand, rows.Err()
}

func (r *txRepo) OpenWorkOrders(ctx context.Context) (map[int64][]WorkOrder, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+workOrderColumns+` FROM work_orders WHERE status IN ('PLANNED', 'IN_PROGRESS') ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	open := make(map[int64][]WorkOrder)
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		open[wo.ItemID] = append(open[wo.ItemID], wo)
	}
	return open, rows.Err()
}

func (r *txRepo) OpenAssemblyRemaining(ctx context.Context) (map[int64]int64, error) {
	return r.openRemaining(ctx, `assembly_orders`, `qty_assembled`)
}

func (r *txRepo) OpenPackagingRemaining(ctx context.Context) (map[int64]int64, error) {
	return r.openRemaining(ctx, `packaging_orders`, `qty_packed`)
}

func (r *txRepo) openRemaining(ctx context.Context, table, progressed string) (map[int64]int64, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT item_id, SUM(GREATEST(0, qty_total - `+progressed+`)) FROM `+table+` WHERE status <> 'DONE' GROUP BY item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	remaining := make(map[int64]int64)
	for rows.Next() {
		var itemID, qty int64
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		remaining[itemID] = qty
	}
	return remaining, rows.Err()
}

func (r *txRepo) InsertWorkOrder(ctx context.Context, wo WorkOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO work_orders (item_id, qty, planned_qty, status, due_date) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		wo.ItemID, wo.Qty, wo.PlannedQty, string(wo.Status), wo.DueDate,
	).Scan(&id)
	return id, err
}

func (r *txRepo) ResizeWorkOrder(ctx context.Context, id int64, qty float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE work_orders SET qty = $2, planned_qty = $2 WHERE id = $1`, id, qty)
	return err
}

func (r *txRepo) DeleteWorkOrder(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	return err
}

func (r *txRepo) GetWorkOrderForUpdate(ctx context.Context, id int64) (WorkOrder, error) {
	return scanWorkOrder(r.tx.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepo) UpdateWorkOrderProgress(ctx context.Context, id int64, qty float64, status Status, completedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE work_orders SET qty = $2, status = $3, completed_at = $4 WHERE id = $1`,
		id, qty, string(status), completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkOrderNotFound
	}
	return nil
}

func (r *txRepo) InsertAssemblyOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO assembly_orders (work_order_id, item_id, qty_total, qty_assembled, status) VALUES ($1, $2, $3, 0, 'PLANNED')`,
		workOrderID, itemID, qtyTotal)
	return err
}

func (r *txRepo) InsertPackagingOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO packaging_orders (work_order_id, item_id, qty_total, qty_packed, status) VALUES ($1, $2, $3, 0, 'PLANNED')`,
		workOrderID, itemID, qtyTotal)
	return err
}
