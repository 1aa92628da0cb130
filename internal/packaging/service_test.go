package packaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type ledgerRow struct {
	itemID  int64
	qty     int64
	orderID int64
}

type memoryPackRepo struct {
	orders  map[int64]Order
	itemQty map[int64]int64
	ledger  []ledgerRow
	nextID  int64
}

func newMemoryPackRepo() *memoryPackRepo {
	return &memoryPackRepo{orders: make(map[int64]Order), itemQty: make(map[int64]int64)}
}

func (r *memoryPackRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryPackRepo) ListViews(ctx context.Context) ([]View, error) {
	var views []View
	for _, o := range r.orders {
		views = append(views, View{ID: o.ID, QtyTotal: o.QtyTotal, QtyPacked: o.QtyPacked, Status: o.Status})
	}
	return views, nil
}

func (r *memoryPackRepo) ItemInfo(ctx context.Context, itemID int64) (string, string, error) {
	return "WID-001", "Widget Standard", nil
}

func (r *memoryPackRepo) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (r *memoryPackRepo) SaveProgress(ctx context.Context, o Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memoryPackRepo) InsertCompleted(ctx context.Context, o Order) (int64, error) {
	r.nextID++
	o.ID = r.nextID
	r.orders[o.ID] = o
	return o.ID, nil
}

func (r *memoryPackRepo) GetItemQtyForUpdate(ctx context.Context, itemID int64) (int64, error) {
	return r.itemQty[itemID], nil
}

func (r *memoryPackRepo) SetItemQuantity(ctx context.Context, itemID, quantity int64) error {
	r.itemQty[itemID] = quantity
	return nil
}

func (r *memoryPackRepo) InsertLedgerIn(ctx context.Context, itemID, qty, orderID int64) error {
	r.ledger = append(r.ledger, ledgerRow{itemID: itemID, qty: qty, orderID: orderID})
	return nil
}

type countingPlanner struct {
	calls int
}

func (p *countingPlanner) Recalculate(ctx context.Context) error {
	p.calls++
	return nil
}

func newTestService(repo *memoryPackRepo, planner PlannerPort) *Service {
	svc := NewService(repo, planner, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestUpdateCreditsInventoryIncrementally(t *testing.T) {
	repo := newMemoryPackRepo()
	repo.orders[1] = Order{ID: 1, WorkOrderID: 7, ItemID: 3, QtyTotal: 10, Status: StatusPlanned}
	repo.itemQty[3] = 100
	planner := &countingPlanner{}
	svc := newTestService(repo, planner)
	ctx := context.Background()

	view, err := svc.Update(ctx, 1, UpdateInput{Status: StatusInProgress, QtyPacked: 4})
	require.NoError(t, err)
	require.Equal(t, int64(4), view.QtyPacked)
	require.Equal(t, int64(104), repo.itemQty[3])
	require.Len(t, repo.ledger, 1)
	require.Equal(t, int64(4), repo.ledger[0].qty)
	require.Equal(t, 1, planner.calls)

	// Only the delta is credited on the next update.
	_, err = svc.Update(ctx, 1, UpdateInput{Status: StatusInProgress, QtyPacked: 7})
	require.NoError(t, err)
	require.Equal(t, int64(107), repo.itemQty[3])
	require.Len(t, repo.ledger, 2)
	require.Equal(t, int64(3), repo.ledger[1].qty)
	require.Equal(t, 2, planner.calls)
}

func TestUpdatePartialCompletionSplits(t *testing.T) {
	repo := newMemoryPackRepo()
	repo.nextID = 1
	repo.orders[1] = Order{ID: 1, WorkOrderID: 7, ItemID: 3, QtyTotal: 12, Status: StatusPlanned}
	svc := newTestService(repo, nil)

	view, err := svc.Update(context.Background(), 1, UpdateInput{Status: StatusDone, QtyPacked: 5})
	require.NoError(t, err)

	require.Equal(t, StatusDone, view.Status)
	require.Equal(t, int64(5), view.QtyTotal)

	residual := repo.orders[1]
	require.Equal(t, int64(7), residual.QtyTotal)
	require.Equal(t, int64(0), residual.QtyPacked)
	require.Equal(t, StatusPlanned, residual.Status)
	require.Nil(t, residual.CompletedAt)

	completed := repo.orders[view.ID]
	require.Equal(t, int64(12), completed.QtyTotal+residual.QtyTotal)
	require.NotNil(t, completed.CompletedAt)

	// The credited stock covers the packed 5 units.
	require.Equal(t, int64(5), repo.itemQty[3])
}

func TestUpdateFullCompletionStampsCompletedAt(t *testing.T) {
	repo := newMemoryPackRepo()
	repo.orders[1] = Order{ID: 1, WorkOrderID: 7, ItemID: 3, QtyTotal: 12, QtyPacked: 7, Status: StatusInProgress}
	svc := newTestService(repo, nil)

	view, err := svc.Update(context.Background(), 1, UpdateInput{Status: StatusDone, QtyPacked: 12})
	require.NoError(t, err)
	require.Equal(t, int64(1), view.ID)
	require.Equal(t, StatusDone, view.Status)
	require.NotNil(t, repo.orders[1].CompletedAt)
	require.Equal(t, int64(5), repo.itemQty[3])
	require.Len(t, repo.orders, 1)
}

func TestUpdateValidation(t *testing.T) {
	repo := newMemoryPackRepo()
	repo.orders[1] = Order{ID: 1, ItemID: 3, QtyTotal: 10, Status: StatusPlanned}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, UpdateInput{Status: "SHIPPED", QtyPacked: 5})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Update(ctx, 1, UpdateInput{Status: StatusDone, QtyPacked: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Update(ctx, 1, UpdateInput{Status: StatusDone, QtyPacked: 11})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Update(ctx, 404, UpdateInput{Status: StatusDone, QtyPacked: 5})
	require.ErrorIs(t, err, ErrOrderNotFound)

	require.Empty(t, repo.ledger)
	require.Empty(t, repo.itemQty)
}
