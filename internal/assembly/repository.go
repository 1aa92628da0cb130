package assembly

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for assembly orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations for a progress update.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	SaveProgress(ctx context.Context, o Order) error
	InsertCompleted(ctx context.Context, o Order) (int64, error)
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

// ListViews returns all assembly orders joined with their items, newest first.
func (r *Repository) ListViews(ctx context.Context) ([]View, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, i.sku, i.name, a.qty_total, a.qty_assembled, a.status
		FROM assembly_orders a
		JOIN items i ON i.id = a.item_id
		ORDER BY a.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.ID, &v.SKU, &v.ItemName, &v.QtyTotal, &v.QtyAssembled, &v.Status); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ItemInfo looks up the SKU and name for an item, for response shaping.
func (r *Repository) ItemInfo(ctx context.Context, itemID int64) (sku, name string, err error) {
	err = r.pool.QueryRow(ctx, `SELECT sku, name FROM items WHERE id = $1`, itemID).Scan(&sku, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	return sku, name, err
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.tx.QueryRow(ctx,
		`SELECT id, work_order_id, item_id, qty_total, qty_assembled, status FROM assembly_orders WHERE id = $1 FOR UPDATE`,
		id).Scan(&o.ID, &o.WorkOrderID, &o.ItemID, &o.QtyTotal, &o.QtyAssembled, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *txRepo) SaveProgress(ctx context.Context, o Order) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE assembly_orders SET qty_total = $2, qty_assembled = $3, status = $4 WHERE id = $1`,
		o.ID, o.QtyTotal, o.QtyAssembled, string(o.Status))
	return err
}

func (r *txRepo) InsertCompleted(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO assembly_orders (work_order_id, item_id, qty_total, qty_assembled, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.WorkOrderID, o.ItemID, o.QtyTotal, o.QtyAssembled, string(o.Status)).Scan(&id)
	return id, err
}

func (r *txRepo) InsertPackagingOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO packaging_orders (work_order_id, item_id, qty_total, qty_packed, status) VALUES ($1, $2, $3, 0, 'PLANNED')`,
		workOrderID, itemID, qtyTotal)
	return err
}
