package assembly

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryAssemblyRepo struct {
	orders    map[int64]Order
	packaging []pipelineInsert
	nextID    int64
}

type pipelineInsert struct {
	workOrderID int64
	itemID      int64
	qtyTotal    int64
}

func newMemoryAssemblyRepo() *memoryAssemblyRepo {
	return &memoryAssemblyRepo{orders: make(map[int64]Order)}
}

func (r *memoryAssemblyRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryAssemblyRepo) ListViews(ctx context.Context) ([]View, error) {
	var views []View
	for _, o := range r.orders {
		views = append(views, View{ID: o.ID, QtyTotal: o.QtyTotal, QtyAssembled: o.QtyAssembled, Status: o.Status})
	}
	return views, nil
}

func (r *memoryAssemblyRepo) ItemInfo(ctx context.Context, itemID int64) (string, string, error) {
	return "WID-001", "Widget Standard", nil
}

func (r *memoryAssemblyRepo) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (r *memoryAssemblyRepo) SaveProgress(ctx context.Context, o Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memoryAssemblyRepo) InsertCompleted(ctx context.Context, o Order) (int64, error) {
	r.nextID++
	o.ID = r.nextID
	r.orders[o.ID] = o
	return o.ID, nil
}

func (r *memoryAssemblyRepo) InsertPackagingOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error {
	r.packaging = append(r.packaging, pipelineInsert{workOrderID: workOrderID, itemID: itemID, qtyTotal: qtyTotal})
	return nil
}

func TestUpdatePartialCompletionSplits(t *testing.T) {
	repo := newMemoryAssemblyRepo()
	repo.nextID = 1
	repo.orders[1] = Order{ID: 1, WorkOrderID: 7, ItemID: 3, QtyTotal: 20, Status: StatusPlanned}
	svc := NewService(repo, nil)

	view, err := svc.Update(context.Background(), 1, UpdateInput{Status: StatusDone, QtyAssembled: 12})
	require.NoError(t, err)

	// The returned record is the completed fork.
	require.Equal(t, StatusDone, view.Status)
	require.Equal(t, int64(12), view.QtyTotal)
	require.Equal(t, int64(12), view.QtyAssembled)

	// The original shrank to the residual and went back to PLANNED.
	residual := repo.orders[1]
	require.Equal(t, int64(8), residual.QtyTotal)
	require.Equal(t, int64(0), residual.QtyAssembled)
	require.Equal(t, StatusPlanned, residual.Status)

	// Quantity is conserved across the fork.
	completed := repo.orders[view.ID]
	require.Equal(t, int64(20), completed.QtyTotal+residual.QtyTotal)

	// The completed slice moved into packaging.
	require.Len(t, repo.packaging, 1)
	require.Equal(t, int64(12), repo.packaging[0].qtyTotal)
	require.Equal(t, int64(7), repo.packaging[0].workOrderID)
}

func TestUpdateFullCompletionSkipsSplit(t *testing.T) {
	repo := newMemoryAssemblyRepo()
	repo.nextID = 1
	repo.orders[1] = Order{ID: 1, WorkOrderID: 7, ItemID: 3, QtyTotal: 20, Status: StatusInProgress}
	svc := NewService(repo, nil)

	view, err := svc.Update(context.Background(), 1, UpdateInput{Status: StatusDone, QtyAssembled: 20})
	require.NoError(t, err)
	require.Equal(t, int64(1), view.ID)
	require.Equal(t, StatusDone, view.Status)
	require.Len(t, repo.orders, 1)
	require.Len(t, repo.packaging, 1)
	require.Equal(t, int64(20), repo.packaging[0].qtyTotal)
}

func TestUpdateProgressWithoutCompletion(t *testing.T) {
	repo := newMemoryAssemblyRepo()
	repo.orders[1] = Order{ID: 1, WorkOrderID: 7, ItemID: 3, QtyTotal: 20, Status: StatusPlanned}
	svc := NewService(repo, nil)

	view, err := svc.Update(context.Background(), 1, UpdateInput{Status: StatusInProgress, QtyAssembled: 5})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, view.Status)
	require.Equal(t, int64(5), view.QtyAssembled)
	require.Empty(t, repo.packaging)
}

func TestUpdateValidation(t *testing.T) {
	repo := newMemoryAssemblyRepo()
	repo.orders[1] = Order{ID: 1, QtyTotal: 10, Status: StatusPlanned}
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, UpdateInput{Status: "SHIPPED", QtyAssembled: 5})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Update(ctx, 1, UpdateInput{Status: StatusDone, QtyAssembled: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Update(ctx, 1, UpdateInput{Status: StatusDone, QtyAssembled: 11})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Update(ctx, 99, UpdateInput{Status: StatusDone, QtyAssembled: 5})
	require.ErrorIs(t, err, ErrOrderNotFound)
}
