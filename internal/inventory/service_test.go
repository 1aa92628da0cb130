package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryItemRepo struct {
	items  map[int64]Item
	ledger []LedgerEntry
	nextID int64
}

func newMemoryItemRepo() *memoryItemRepo {
	return &memoryItemRepo{items: make(map[int64]Item)}
}

func (r *memoryItemRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryItemRepo) List(ctx context.Context) ([]Item, error) {
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *memoryItemRepo) Get(ctx context.Context, id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (r *memoryItemRepo) GetBySKU(ctx context.Context, sku string) (Item, error) {
	for _, it := range r.items {
		if it.SKU == sku {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (r *memoryItemRepo) Create(ctx context.Context, it Item) (int64, error) {
	for _, existing := range r.items {
		if existing.SKU == it.SKU {
			return 0, ErrSKUExists
		}
	}
	r.nextID++
	it.ID = r.nextID
	r.items[it.ID] = it
	return it.ID, nil
}

func (r *memoryItemRepo) Update(ctx context.Context, it Item) error {
	if _, ok := r.items[it.ID]; !ok {
		return ErrItemNotFound
	}
	r.items[it.ID] = it
	return nil
}

func (r *memoryItemRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryItemRepo) ListLedger(ctx context.Context, itemID int64) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, entry := range r.ledger {
		if entry.ItemID == itemID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memoryItemRepo) GetItemForUpdate(ctx context.Context, itemID int64) (Item, error) {
	return r.Get(ctx, itemID)
}

func (r *memoryItemRepo) SetQuantity(ctx context.Context, itemID, quantity int64) error {
	it := r.items[itemID]
	it.Quantity = quantity
	r.items[itemID] = it
	return nil
}

func (r *memoryItemRepo) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	r.nextID++
	entry.ID = r.nextID
	r.ledger = append(r.ledger, entry)
	return entry.ID, nil
}

func TestCreateItemDefaultsUnit(t *testing.T) {
	repo := newMemoryItemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	item, err := svc.Create(ctx, Item{SKU: "WID-001", Name: "Widget Standard", Quantity: 5, Active: true})
	require.NoError(t, err)
	require.Equal(t, "pcs", item.Unit)

	_, err = svc.Create(ctx, Item{SKU: "WID-001", Name: "Duplicate"})
	require.ErrorIs(t, err, ErrSKUExists)

	_, err = svc.Create(ctx, Item{SKU: "WID-002", Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPostAdjustment(t *testing.T) {
	repo := newMemoryItemRepo()
	repo.nextID = 1
	repo.items[1] = Item{ID: 1, SKU: "WID-001", Name: "Widget Standard", Quantity: 10}
	svc := NewService(repo, nil)
	ctx := context.Background()

	item, err := svc.PostAdjustment(ctx, AdjustmentInput{ItemID: 1, Delta: -4, Note: "cycle count"})
	require.NoError(t, err)
	require.Equal(t, int64(6), item.Quantity)
	require.Len(t, repo.ledger, 1)
	require.Equal(t, TransactionTypeAdjust, repo.ledger[0].TxnType)
	require.Equal(t, -4.0, repo.ledger[0].Qty)
	require.Equal(t, RefTypeManual, repo.ledger[0].RefType)
}

func TestPostAdjustmentGuardsNegativeStock(t *testing.T) {
	repo := newMemoryItemRepo()
	repo.items[1] = Item{ID: 1, SKU: "WID-001", Quantity: 3}
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.PostAdjustment(ctx, AdjustmentInput{ItemID: 1, Delta: -5})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.Equal(t, int64(3), repo.items[1].Quantity)
	require.Empty(t, repo.ledger)

	_, err = svc.PostAdjustment(ctx, AdjustmentInput{ItemID: 1, Delta: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostAdjustment(ctx, AdjustmentInput{ItemID: 42, Delta: 1})
	require.ErrorIs(t, err, ErrItemNotFound)
}
