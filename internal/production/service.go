package production

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListViews(ctx context.Context) ([]WorkOrderView, error)
	Get(ctx context.Context, id int64) (WorkOrder, error)
	GetItemBySKU(ctx context.Context, sku string) (int64, string, error)
	GetItemName(ctx context.Context, itemID int64) (string, string, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the work order stage of the production pipeline.
type Service struct {
	repo    RepositoryPort
	planner *Planner
	audit   AuditPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, planner *Planner, audit AuditPort) *Service {
	return &Service{repo: repo, planner: planner, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// List re-runs the planner and returns all work orders. Running the recompute
// on every list read is what keeps planning self-healing without a background
// scheduler.
func (s *Service) List(ctx context.Context) ([]WorkOrderView, error) {
	if err := s.planner.Recalculate(ctx); err != nil {
		return nil, fmt.Errorf("recalculate requirements: %w", err)
	}
	return s.repo.ListViews(ctx)
}

// CreateInput describes a manually created work order.
type CreateInput struct {
	SKU      string
	Quantity float64
	Status   Status
	DueDate  *time.Time
}

// Create registers a work order for a SKU outside the planner path.
func (s *Service) Create(ctx context.Context, input CreateInput) (WorkOrderView, error) {
	if input.Status == "" {
		input.Status = StatusPlanned
	}
	if !input.Status.Valid() {
		return WorkOrderView{}, ErrInvalidStatus
	}
	if input.Quantity <= 0 {
		return WorkOrderView{}, ErrInvalidQuantity
	}
	itemID, itemName, err := s.repo.GetItemBySKU(ctx, input.SKU)
	if err != nil {
		return WorkOrderView{}, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		woID, err := tx.InsertWorkOrder(ctx, WorkOrder{
			ItemID:     itemID,
			Qty:        input.Quantity,
			PlannedQty: input.Quantity,
			Status:     input.Status,
			DueDate:    input.DueDate,
		})
		if err != nil {
			return err
		}
		id = woID
		return nil
	})
	if err != nil {
		return WorkOrderView{}, err
	}
	s.recordAudit(ctx, "production:create", id, map[string]any{"sku": input.SKU, "qty": input.Quantity})
	return WorkOrderView{ID: id, SKU: input.SKU, ItemName: itemName, Quantity: input.Quantity, Status: input.Status}, nil
}

// UpdateStatus applies an operator status change. Flipping a not-DONE order
// to DONE converts any remaining quantity into one assembly batch and zeroes
// the plan; the pipeline then carries the batch forward.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (WorkOrderView, error) {
	if !status.Valid() {
		return WorkOrderView{}, ErrInvalidStatus
	}

	var updated WorkOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		wo, err := tx.GetWorkOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if wo.Status != StatusDone && status == StatusDone {
			if wo.Qty > 0 {
				if err := tx.InsertAssemblyOrder(ctx, wo.ID, wo.ItemID, int64(wo.Qty)); err != nil {
					return err
				}
				wo.Qty = 0
			}
			now := s.now()
			wo.CompletedAt = &now
			// Legacy completion path: the packaging order is created for the
			// already-zeroed remainder, matching the observed behavior. Real
			// packaging quantities arrive through assembly completion.
			if err := tx.InsertPackagingOrder(ctx, wo.ID, wo.ItemID, int64(wo.Qty)); err != nil {
				return err
			}
		}
		wo.Status = status
		if err := tx.UpdateWorkOrderProgress(ctx, wo.ID, wo.Qty, wo.Status, wo.CompletedAt); err != nil {
			return err
		}
		updated = wo
		return nil
	})
	if err != nil {
		return WorkOrderView{}, err
	}
	s.recordAudit(ctx, "production:status", id, map[string]any{"status": status})
	return s.view(ctx, updated)
}

// Produce spawns an assembly batch for qty units and decrements the
// remaining plan; the work order reaches DONE when the plan hits zero.
func (s *Service) Produce(ctx context.Context, id int64, qty int64) (WorkOrderView, error) {
	if qty <= 0 {
		return WorkOrderView{}, ErrInvalidQuantity
	}

	var updated WorkOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		wo, err := tx.GetWorkOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if float64(qty) > wo.Qty {
			return ErrExceedsRemaining
		}
		if err := tx.InsertAssemblyOrder(ctx, wo.ID, wo.ItemID, qty); err != nil {
			return err
		}
		wo.Qty -= float64(qty)
		if wo.Qty == 0 {
			wo.Status = StatusDone
			now := s.now()
			wo.CompletedAt = &now
		} else {
			wo.Status = StatusInProgress
		}
		if err := tx.UpdateWorkOrderProgress(ctx, wo.ID, wo.Qty, wo.Status, wo.CompletedAt); err != nil {
			return err
		}
		updated = wo
		return nil
	})
	if err != nil {
		return WorkOrderView{}, err
	}
	s.recordAudit(ctx, "production:produce", id, map[string]any{"qty": qty})
	return s.view(ctx, updated)
}

// Delete removes a work order. The next planner run recreates it if demand
// still warrants one.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "production:delete", id, nil)
	return nil
}

func (s *Service) view(ctx context.Context, wo WorkOrder) (WorkOrderView, error) {
	sku, name, err := s.repo.GetItemName(ctx, wo.ItemID)
	if err != nil {
		return WorkOrderView{}, err
	}
	return WorkOrderView{ID: wo.ID, SKU: sku, ItemName: name, Quantity: wo.Qty, Status: wo.Status}, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "work_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
