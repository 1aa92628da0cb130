package packaging

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for packaging orders.
// Packing credits the shared item quantity and appends a stock ledger row,
// so those writes live here and run inside one transaction with the
// packaging order update.
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
	GetItemQtyForUpdate(ctx context.Context, itemID int64) (int64, error)
	SetItemQuantity(ctx context.Context, itemID, quantity int64) error
	InsertLedgerIn(ctx context.Context, itemID, qty, orderID int64) error
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

// ListViews returns all packaging orders joined with their items, newest first.
func (r *Repository) ListViews(ctx context.Context) ([]View, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, i.sku, i.name, p.qty_total, p.qty_packed, p.status
		FROM packaging_orders p
		JOIN items i ON i.id = p.item_id
		ORDER BY p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.ID, &v.SKU, &v.ItemName, &v.QtyTotal, &v.QtyPacked, &v.Status); err != nil {
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
		`SELECT id, work_order_id, item_id, qty_total, qty_packed, status, completed_at FROM packaging_orders WHERE id = $1 FOR UPDATE`,
		id).Scan(&o.ID, &o.WorkOrderID, &o.ItemID, &o.QtyTotal, &o.QtyPacked, &o.Status, &o.CompletedAt)
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
		`UPDATE packaging_orders SET qty_total = $2, qty_packed = $3, status = $4, completed_at = $5 WHERE id = $1`,
		o.ID, o.QtyTotal, o.QtyPacked, string(o.Status), o.CompletedAt)
	return err
}

func (r *txRepo) InsertCompleted(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO packaging_orders (work_order_id, item_id, qty_total, qty_packed, status, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		o.WorkOrderID, o.ItemID, o.QtyTotal, o.QtyPacked, string(o.Status), o.CompletedAt).Scan(&id)
	return id, err
}

func (r *txRepo) GetItemQtyForUpdate(ctx context.Context, itemID int64) (int64, error) {
	var qty int64
	err := r.tx.QueryRow(ctx, `SELECT quantity FROM items WHERE id = $1 FOR UPDATE`, itemID).Scan(&qty)
	return qty, err
}

func (r *txRepo) SetItemQuantity(ctx context.Context, itemID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	return err
}

func (r *txRepo) InsertLedgerIn(ctx context.Context, itemID, qty, orderID int64) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO stock_ledger (item_id, qty, txn_type, ref_type, ref_id) VALUES ($1, $2, 'IN', 'PACKAGING_ORDER', $3)`,
		itemID, qty, orderID)
	return err
}
