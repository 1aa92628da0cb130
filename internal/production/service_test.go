package production

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(repo *memoryPlanRepo) *Service {
	svc := NewService(repo, NewPlanner(repo, nil, PlannerConfig{}), nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestProduceSpawnsAssemblyBatches(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 0)
	repo.nextID = 1
	repo.workOrders[1] = WorkOrder{ID: 1, ItemID: 1, Qty: 20, PlannedQty: 20, Status: StatusPlanned}
	svc := newTestService(repo)
	ctx := context.Background()

	view, err := svc.Produce(ctx, 1, 12)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, view.Status)
	require.Equal(t, 8.0, view.Quantity)
	require.Len(t, repo.assembly, 1)
	require.Equal(t, int64(12), repo.assembly[0].qtyTotal)

	_, err = svc.Produce(ctx, 1, 9)
	require.ErrorIs(t, err, ErrExceedsRemaining)

	view, err = svc.Produce(ctx, 1, 8)
	require.NoError(t, err)
	require.Equal(t, StatusDone, view.Status)
	require.Equal(t, 0.0, view.Quantity)
	require.Len(t, repo.assembly, 2)
	require.NotNil(t, repo.workOrders[1].CompletedAt)
}

func TestProduceRejectsBadQuantity(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 0)
	repo.workOrders[1] = WorkOrder{ID: 1, ItemID: 1, Qty: 5, Status: StatusPlanned}
	svc := newTestService(repo)

	_, err := svc.Produce(context.Background(), 1, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, repo.assembly)
}

func TestUpdateStatusDoneFlushesRemainder(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 0)
	repo.nextID = 1
	repo.workOrders[1] = WorkOrder{ID: 1, ItemID: 1, Qty: 5, PlannedQty: 5, Status: StatusPlanned}
	svc := newTestService(repo)

	view, err := svc.UpdateStatus(context.Background(), 1, StatusDone)
	require.NoError(t, err)
	require.Equal(t, StatusDone, view.Status)
	require.Equal(t, 0.0, view.Quantity)

	// The remaining 5 units move into assembly as one batch.
	require.Len(t, repo.assembly, 1)
	require.Equal(t, int64(5), repo.assembly[0].qtyTotal)
	// Completion always files a packaging order, for the post-flush remainder.
	require.Len(t, repo.packaging, 1)
	require.Equal(t, int64(0), repo.packaging[0].qtyTotal)
	require.NotNil(t, repo.workOrders[1].CompletedAt)
}

func TestCreateRequiresKnownSKU(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 0)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SKU: "NOPE-1", Quantity: 5})
	require.ErrorIs(t, err, ErrItemNotFound)

	view, err := svc.Create(ctx, CreateInput{SKU: "WID-001", Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, view.Status)
	require.Equal(t, 5.0, view.Quantity)
	require.Equal(t, "WID-001", view.SKU)
}

func TestListRunsPlannerFirst(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 10)
	svc := newTestService(repo)

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, 10.0, views[0].Quantity)
}
