package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for purchase orders.
// Dispatch settlement also touches items and the stock ledger; those writes
// happen here so the whole settlement shares one transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LineWithItem joins a purchase order line with its item row. ItemQty is the
// on-hand quantity read under the row lock.
type LineWithItem struct {
	Line     PurchaseOrderLine
	SKU      string
	ItemName string
	ItemQty  int64
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line PurchaseOrderLine) (int64, error)
	GetLinesWithItemsForUpdate(ctx context.Context, orderID int64) ([]LineWithItem, error)
	AddDispatchedQty(ctx context.Context, lineID int64, qty int64) error
	SetItemQuantity(ctx context.Context, itemID, quantity int64) error
	InsertDispatchLog(ctx context.Context, log DispatchLog) (int64, error)
	InsertLedgerOut(ctx context.Context, itemID, qty, orderID int64) error
	SetOrderStatus(ctx context.Context, orderID int64, status Status) error
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

const orderColumns = `id, status, COALESCE(customer_name, ''), COALESCE(sales_person, ''), order_timestamp, total_amount, created_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var (
		o     PurchaseOrder
		total decimal.Decimal
		ts    *time.Time
	)
	err := row.Scan(&o.ID, &o.Status, &o.CustomerName, &o.SalesPerson, &ts, &total, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrOrderNotFound
		}
		return PurchaseOrder{}, err
	}
	if ts != nil {
		o.OrderTimestamp = *ts
	}
	o.TotalAmount = total
	return o, nil
}

// List returns all purchase orders, newest first.
func (r *Repository) List(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Get fetches one purchase order.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id))
}

// ListHistory returns every order with its line read models.
func (r *Repository) ListHistory(ctx context.Context) ([]OrderHistory, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.purchase_order_id, i.sku, i.name, l.qty, l.dispatched_qty
		FROM purchase_order_lines l
		JOIN items i ON i.id = l.item_id
		ORDER BY l.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	linesByOrder := make(map[int64][]LineView)
	for rows.Next() {
		var (
			orderID    int64
			view       LineView
			dispatched float64
		)
		if err := rows.Scan(&orderID, &view.SKU, &view.ItemName, &view.Quantity, &dispatched); err != nil {
			return nil, err
		}
		view.DispatchedQty = int64(dispatched)
		view.RemainingQty = view.Quantity - view.DispatchedQty
		linesByOrder[orderID] = append(linesByOrder[orderID], view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history := make([]OrderHistory, 0, len(orders))
	for _, o := range orders {
		history = append(history, OrderHistory{
			ID:             o.ID,
			CustomerName:   o.CustomerName,
			SalesPerson:    o.SalesPerson,
			OrderTimestamp: o.OrderTimestamp,
			Status:         o.Status,
			Lines:          linesByOrder[o.ID],
		})
	}
	return history, nil
}

// Update rewrites the mutable header fields of an order.
func (r *Repository) Update(ctx context.Context, o PurchaseOrder) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE purchase_orders SET status = $2, customer_name = $3, sales_person = $4, order_timestamp = $5, total_amount = $6 WHERE id = $1`,
		o.ID, string(o.Status), o.CustomerName, o.SalesPerson, o.OrderTimestamp, o.TotalAmount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Delete removes an order and its lines.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE purchase_order_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// ListDispatchLogs returns the settlement trail for one order.
func (r *Repository) ListDispatchLogs(ctx context.Context, orderID int64) ([]DispatchLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, purchase_order_id, code, sku, item_name, dispatch_qty, rejected_qty, passed_qty,
		       COALESCE(proof_public_id, ''), COALESCE(proof_version, ''), COALESCE(proof_format, ''),
		       qc_name, qc_date, created_at
		FROM dispatch_logs WHERE purchase_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []DispatchLog
	for rows.Next() {
		var l DispatchLog
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.Code, &l.SKU, &l.ItemName,
			&l.DispatchQty, &l.RejectedQty, &l.PassedQty,
			&l.ProofPublicID, &l.ProofVersion, &l.ProofFormat,
			&l.QCName, &l.QCDate, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ResolveSKUs maps the given SKUs to item ids. Missing SKUs are simply absent
// from the result.
func (r *Repository) ResolveSKUs(ctx context.Context, skus []string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku, id FROM items WHERE sku = ANY($1)`, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64, len(skus))
	for rows.Next() {
		var sku string
		var id int64
		if err := rows.Scan(&sku, &id); err != nil {
			return nil, err
		}
		out[sku] = id
	}
	return out, rows.Err()
}

func (r *txRepo) InsertOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO purchase_orders (status, customer_name, sales_person, order_timestamp, total_amount) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		string(order.Status), order.CustomerName, order.SalesPerson, order.OrderTimestamp, order.TotalAmount,
	).Scan(&id)
	return id, err
}

func (r *txRepo) InsertLine(ctx context.Context, line PurchaseOrderLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO purchase_order_lines (purchase_order_id, item_id, qty, unit_cost, dispatched_qty) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		line.PurchaseOrderID, line.ItemID, line.Qty, line.UnitCost, line.DispatchedQty,
	).Scan(&id)
	return id, err
}

// GetLinesWithItemsForUpdate loads every line of the order joined with its
// item, locking the item rows so concurrent settlements serialise.
func (r *txRepo) GetLinesWithItemsForUpdate(ctx context.Context, orderID int64) ([]LineWithItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT l.id, l.purchase_order_id, l.item_id, l.qty, l.unit_cost, l.dispatched_qty,
		       i.sku, i.name, i.quantity
		FROM purchase_order_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.purchase_order_id = $1
		ORDER BY l.id
		FOR UPDATE OF l, i`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineWithItem
	for rows.Next() {
		var lw LineWithItem
		if err := rows.Scan(&lw.Line.ID, &lw.Line.PurchaseOrderID, &lw.Line.ItemID,
			&lw.Line.Qty, &lw.Line.UnitCost, &lw.Line.DispatchedQty,
			&lw.SKU, &lw.ItemName, &lw.ItemQty); err != nil {
			return nil, err
		}
		out = append(out, lw)
	}
	return out, rows.Err()
}

func (r *txRepo) AddDispatchedQty(ctx context.Context, lineID int64, qty int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE purchase_order_lines SET dispatched_qty = dispatched_qty + $2 WHERE id = $1`, lineID, qty)
	return err
}

func (r *txRepo) SetItemQuantity(ctx context.Context, itemID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	return err
}

func (r *txRepo) InsertDispatchLog(ctx context.Context, log DispatchLog) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO dispatch_logs (purchase_order_id, code, sku, item_name, dispatch_qty, rejected_qty, passed_qty,
		                           proof_public_id, proof_version, proof_format, qc_name, qc_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12)
		RETURNING id`,
		log.PurchaseOrderID, log.Code, log.SKU, log.ItemName, log.DispatchQty, log.RejectedQty, log.PassedQty,
		log.ProofPublicID, log.ProofVersion, log.ProofFormat, log.QCName, log.QCDate,
	).Scan(&id)
	return id, err
}

func (r *txRepo) InsertLedgerOut(ctx context.Context, itemID, qty, orderID int64) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO stock_ledger (item_id, qty, txn_type, ref_type, ref_id) VALUES ($1, $2, 'OUT', 'PURCHASE_ORDER', $3)`,
		itemID, qty, orderID)
	return err
}

func (r *txRepo) SetOrderStatus(ctx context.Context, orderID int64, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2 WHERE id = $1`, orderID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
