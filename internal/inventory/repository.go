package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/db"
)

// Repository persists items and the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by services that touch
// the shared quantity counter.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, itemID int64) (Item, error)
	SetQuantity(ctx context.Context, itemID, quantity int64) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error)
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

const itemColumns = `id, sku, name, unit, quantity, reorder_level, active, created_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Unit, &it.Quantity, &it.ReorderLevel, &it.Active, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// List returns every item ordered by SKU.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Get fetches one item by id.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

// GetBySKU fetches one item by SKU.
func (r *Repository) GetBySKU(ctx context.Context, sku string) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku))
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (sku, name, unit, quantity, reorder_level, active) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		it.SKU, it.Name, it.Unit, it.Quantity, it.ReorderLevel, it.Active,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSKUExists
		}
		return 0, err
	}
	return id, nil
}

// Update rewrites the mutable item fields.
func (r *Repository) Update(ctx context.Context, it Item) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE items SET sku = $2, name = $3, unit = $4, quantity = $5, reorder_level = $6, active = $7 WHERE id = $1`,
		it.ID, it.SKU, it.Name, it.Unit, it.Quantity, it.ReorderLevel, it.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Delete removes an item.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListLedger returns the ledger trail for one item, newest first.
func (r *Repository) ListLedger(ctx context.Context, itemID int64) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, qty, txn_type, COALESCE(ref_type, ''), COALESCE(ref_id, 0), created_at
		 FROM stock_ledger WHERE item_id = $1 ORDER BY id DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Qty, &e.TxnType, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepo) GetItemForUpdate(ctx context.Context, itemID int64) (Item, error) {
	return scanItem(r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, itemID))
}

func (r *txRepo) SetQuantity(ctx context.Context, itemID, quantity int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepo) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO stock_ledger (item_id, qty, txn_type, ref_type, ref_id) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, 0)) RETURNING id`,
		entry.ItemID, entry.Qty, string(entry.TxnType), entry.RefType, entry.RefID,
	).Scan(&id)
	return id, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
