package production

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memItem struct {
	PlanItem
	sku  string
	name string
}

type pipelineRow struct {
	workOrderID int64
	itemID      int64
	qtyTotal    int64
	progressed  int64
	status      string
}

type memoryPlanRepo struct {
	items      []memItem
	demand     map[int64]int64
	workOrders map[int64]WorkOrder
	assembly   []pipelineRow
	packaging  []pipelineRow
	nextID     int64
}

func newMemoryPlanRepo() *memoryPlanRepo {
	return &memoryPlanRepo{
		demand:     make(map[int64]int64),
		workOrders: make(map[int64]WorkOrder),
	}
}

func (r *memoryPlanRepo) addItem(id int64, sku, name string, qty, reorder int64) {
	r.items = append(r.items, memItem{PlanItem: PlanItem{ID: id, Quantity: qty, ReorderLevel: reorder}, sku: sku, name: name})
}

func (r *memoryPlanRepo) setItemQty(id, qty int64) {
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Quantity = qty
		}
	}
}

func (r *memoryPlanRepo) plannedOrders(itemID int64) []WorkOrder {
	var out []WorkOrder
	for _, wo := range r.workOrders {
		if wo.ItemID == itemID && wo.Status == StatusPlanned {
			out = append(out, wo)
		}
	}
	return out
}

func (r *memoryPlanRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryPlanRepo) ListPlanItems(ctx context.Context) ([]PlanItem, error) {
	items := make([]PlanItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item.PlanItem)
	}
	return items, nil
}

func (r *memoryPlanRepo) PendingDemand(ctx context.Context, net bool) (map[int64]int64, error) {
	out := make(map[int64]int64, len(r.demand))
	for id, qty := range r.demand {
		out[id] = qty
	}
	return out, nil
}

func (r *memoryPlanRepo) OpenWorkOrders(ctx context.Context) (map[int64][]WorkOrder, error) {
	out := make(map[int64][]WorkOrder)
	for _, wo := range r.workOrders {
		if wo.Status == StatusDone {
			continue
		}
		out[wo.ItemID] = append(out[wo.ItemID], wo)
	}
	return out, nil
}

func (r *memoryPlanRepo) OpenAssemblyRemaining(ctx context.Context) (map[int64]int64, error) {
	return openRemaining(r.assembly), nil
}

func (r *memoryPlanRepo) OpenPackagingRemaining(ctx context.Context) (map[int64]int64, error) {
	return openRemaining(r.packaging), nil
}

func openRemaining(rows []pipelineRow) map[int64]int64 {
	out := make(map[int64]int64)
	for _, row := range rows {
		if row.status == "DONE" {
			continue
		}
		if remaining := row.qtyTotal - row.progressed; remaining > 0 {
			out[row.itemID] += remaining
		}
	}
	return out
}

func (r *memoryPlanRepo) InsertWorkOrder(ctx context.Context, wo WorkOrder) (int64, error) {
	r.nextID++
	wo.ID = r.nextID
	r.workOrders[wo.ID] = wo
	return wo.ID, nil
}

func (r *memoryPlanRepo) ResizeWorkOrder(ctx context.Context, id int64, qty float64) error {
	wo := r.workOrders[id]
	wo.Qty = qty
	wo.PlannedQty = qty
	r.workOrders[id] = wo
	return nil
}

func (r *memoryPlanRepo) DeleteWorkOrder(ctx context.Context, id int64) error {
	delete(r.workOrders, id)
	return nil
}

func (r *memoryPlanRepo) GetWorkOrderForUpdate(ctx context.Context, id int64) (WorkOrder, error) {
	wo, ok := r.workOrders[id]
	if !ok {
		return WorkOrder{}, ErrWorkOrderNotFound
	}
	return wo, nil
}

func (r *memoryPlanRepo) UpdateWorkOrderProgress(ctx context.Context, id int64, qty float64, status Status, completedAt *time.Time) error {
	wo := r.workOrders[id]
	wo.Qty = qty
	wo.Status = status
	wo.CompletedAt = completedAt
	r.workOrders[id] = wo
	return nil
}

func (r *memoryPlanRepo) InsertAssemblyOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error {
	r.assembly = append(r.assembly, pipelineRow{workOrderID: workOrderID, itemID: itemID, qtyTotal: qtyTotal, status: "PLANNED"})
	return nil
}

func (r *memoryPlanRepo) InsertPackagingOrder(ctx context.Context, workOrderID, itemID, qtyTotal int64) error {
	r.packaging = append(r.packaging, pipelineRow{workOrderID: workOrderID, itemID: itemID, qtyTotal: qtyTotal, status: "PLANNED"})
	return nil
}

func (r *memoryPlanRepo) ListViews(ctx context.Context) ([]WorkOrderView, error) {
	var views []WorkOrderView
	for _, wo := range r.workOrders {
		sku, name, _ := r.GetItemName(ctx, wo.ItemID)
		views = append(views, WorkOrderView{ID: wo.ID, SKU: sku, ItemName: name, Quantity: wo.Qty, Status: wo.Status})
	}
	return views, nil
}

func (r *memoryPlanRepo) Get(ctx context.Context, id int64) (WorkOrder, error) {
	return r.GetWorkOrderForUpdate(ctx, id)
}

func (r *memoryPlanRepo) GetItemBySKU(ctx context.Context, sku string) (int64, string, error) {
	for _, item := range r.items {
		if item.sku == sku {
			return item.ID, item.name, nil
		}
	}
	return 0, "", ErrItemNotFound
}

func (r *memoryPlanRepo) GetItemName(ctx context.Context, itemID int64) (string, string, error) {
	for _, item := range r.items {
		if item.ID == itemID {
			return item.sku, item.name, nil
		}
	}
	return "", "", ErrItemNotFound
}

func (r *memoryPlanRepo) Delete(ctx context.Context, id int64) error {
	delete(r.workOrders, id)
	return nil
}

func TestPlannerCreatesResizesAndDeletes(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 10)
	planner := NewPlanner(repo, nil, PlannerConfig{})
	ctx := context.Background()

	require.NoError(t, planner.Recalculate(ctx))
	planned := repo.plannedOrders(1)
	require.Len(t, planned, 1)
	require.Equal(t, 10.0, planned[0].Qty)
	require.Equal(t, 10.0, planned[0].PlannedQty)
	firstID := planned[0].ID

	// New demand grows the same planned order instead of adding another.
	repo.demand[1] = 5
	require.NoError(t, planner.Recalculate(ctx))
	planned = repo.plannedOrders(1)
	require.Len(t, planned, 1)
	require.Equal(t, firstID, planned[0].ID)
	require.Equal(t, 15.0, planned[0].Qty)

	// Re-running with no state change is a no-op.
	require.NoError(t, planner.Recalculate(ctx))
	planned = repo.plannedOrders(1)
	require.Len(t, planned, 1)
	require.Equal(t, 15.0, planned[0].Qty)

	// Once stock covers target the planned order is withdrawn.
	repo.demand = map[int64]int64{}
	repo.setItemQty(1, 20)
	require.NoError(t, planner.Recalculate(ctx))
	require.Empty(t, repo.plannedOrders(1))
}

func TestPlannerCountsInFlightQuantity(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 1, 10)
	repo.assembly = append(repo.assembly, pipelineRow{workOrderID: 1, itemID: 1, qtyTotal: 8, progressed: 2, status: "IN_PROGRESS"})
	repo.packaging = append(repo.packaging, pipelineRow{workOrderID: 1, itemID: 1, qtyTotal: 3, status: "PLANNED"})
	planner := NewPlanner(repo, nil, PlannerConfig{})

	// available = 1 on hand + 6 in assembly + 3 in packaging = 10 = target.
	require.NoError(t, planner.Recalculate(context.Background()))
	require.Empty(t, repo.plannedOrders(1))
}

func TestPlannerDoesNotStackOnInProgress(t *testing.T) {
	repo := newMemoryPlanRepo()
	repo.addItem(1, "WID-001", "Widget Standard", 0, 10)
	repo.nextID = 1
	repo.workOrders[1] = WorkOrder{ID: 1, ItemID: 1, Qty: 4, PlannedQty: 4, Status: StatusInProgress}
	planner := NewPlanner(repo, nil, PlannerConfig{})

	require.NoError(t, planner.Recalculate(context.Background()))
	require.Empty(t, repo.plannedOrders(1))
	require.Len(t, repo.workOrders, 1)
}
