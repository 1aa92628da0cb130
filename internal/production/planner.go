package production

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// PlannerRepositoryPort abstracts the transactional store for the planner.
type PlannerRepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// LockerPort guards the recompute against concurrent runs across processes.
type LockerPort interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Planner derives per-item production requirements from current stock,
// outstanding demand and everything already in flight through the pipeline.
// Recalculate is a full stateless recompute over current rows: it self-heals
// after manual edits or deletions without tracking deltas, at O(items ×
// related orders) cost per call.
type Planner struct {
	repo      PlannerRepositoryPort
	locker    LockerPort
	netDemand bool
}

// PlannerConfig groups optional settings.
type PlannerConfig struct {
	// NetDemand counts the remaining undispatched balance per line instead
	// of the full original quantity. The default (false) matches the long
	// observed behavior where a partially dispatched order keeps exerting
	// its full demand.
	NetDemand bool
}

// NewPlanner builds Planner. locker may be nil in tests.
func NewPlanner(repo PlannerRepositoryPort, locker LockerPort, cfg PlannerConfig) *Planner {
	return &Planner{repo: repo, locker: locker, netDemand: cfg.NetDemand}
}

// Recalculate recomputes the planned work order for every item. Idempotent:
// with no intervening state change a second run produces no net change.
//
// Per item:
//
//	target    = reorder_level + pending_demand
//	available = on_hand + in_production + in_assembly + in_packaging
//	needed    = max(0, target - available)
//
// needed <= 0 deletes the PLANNED work order if one exists; otherwise the
// single PLANNED order is resized to needed, or a new one is created unless
// an IN_PROGRESS order already blocks the planning slot.
func (p *Planner) Recalculate(ctx context.Context) error {
	if p.locker != nil {
		release, err := p.locker.Acquire(ctx, shared.PlannerLockKey(), 30*time.Second)
		if err != nil {
			return err
		}
		defer release()
	}

	return p.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.ListPlanItems(ctx)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		demand, err := tx.PendingDemand(ctx, p.netDemand)
		if err != nil {
			return fmt.Errorf("pending demand: %w", err)
		}
		openWOs, err := tx.OpenWorkOrders(ctx)
		if err != nil {
			return fmt.Errorf("open work orders: %w", err)
		}
		inAssembly, err := tx.OpenAssemblyRemaining(ctx)
		if err != nil {
			return fmt.Errorf("open assembly: %w", err)
		}
		inPackaging, err := tx.OpenPackagingRemaining(ctx)
		if err != nil {
			return fmt.Errorf("open packaging: %w", err)
		}

		for _, item := range items {
			var inProduction int64
			var planned *WorkOrder
			inProgress := false
			for i, wo := range openWOs[item.ID] {
				inProduction += int64(wo.Qty)
				switch wo.Status {
				case StatusPlanned:
					if planned == nil {
						planned = &openWOs[item.ID][i]
					}
				case StatusInProgress:
					inProgress = true
				}
			}

			target := item.ReorderLevel + demand[item.ID]
			available := item.Quantity + inProduction + inAssembly[item.ID] + inPackaging[item.ID]
			needed := target - available

			if needed <= 0 {
				if planned != nil {
					if err := tx.DeleteWorkOrder(ctx, planned.ID); err != nil {
						return fmt.Errorf("delete planned work order: %w", err)
					}
				}
				continue
			}

			switch {
			case planned != nil:
				if err := tx.ResizeWorkOrder(ctx, planned.ID, float64(needed)); err != nil {
					return fmt.Errorf("resize work order: %w", err)
				}
			case !inProgress:
				if _, err := tx.InsertWorkOrder(ctx, WorkOrder{
					ItemID:     item.ID,
					Qty:        float64(needed),
					PlannedQty: float64(needed),
					Status:     StatusPlanned,
				}); err != nil {
					return fmt.Errorf("create work order: %w", err)
				}
			}
		}
		return nil
	})
}
