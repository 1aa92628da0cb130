package assembly

import (
	"context"
	"fmt"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// RepositoryPort abstracts assembly persistence.
type RepositoryPort interface {
	ListViews(ctx context.Context) ([]View, error)
	ItemInfo(ctx context.Context, itemID int64) (sku, name string, err error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements assembly progress semantics.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all assembly orders with item details.
func (s *Service) List(ctx context.Context) ([]View, error) {
	return s.repo.ListViews(ctx)
}

// Update applies a progress update. Completing less than the full batch
// splits it: the completed quantity forks into a new DONE row and the
// original shrinks to the residual, back at PLANNED with zero progress.
// Every completed quantity spawns a packaging order of the same size.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (View, error) {
	if !input.Status.Valid() {
		return View{}, ErrInvalidStatus
	}
	if input.QtyAssembled <= 0 {
		return View{}, ErrInvalidQuantity
	}

	var result Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if input.QtyAssembled > order.QtyTotal {
			return ErrInvalidQuantity
		}

		if input.Status == StatusDone && input.QtyAssembled < order.QtyTotal {
			completed := Order{
				WorkOrderID:  order.WorkOrderID,
				ItemID:       order.ItemID,
				QtyTotal:     input.QtyAssembled,
				QtyAssembled: input.QtyAssembled,
				Status:       StatusDone,
			}
			completedID, err := tx.InsertCompleted(ctx, completed)
			if err != nil {
				return err
			}
			completed.ID = completedID

			order.QtyTotal -= input.QtyAssembled
			order.QtyAssembled = 0
			order.Status = StatusPlanned
			if err := tx.SaveProgress(ctx, order); err != nil {
				return err
			}
			if err := tx.InsertPackagingOrder(ctx, completed.WorkOrderID, completed.ItemID, completed.QtyTotal); err != nil {
				return err
			}
			result = completed
			return nil
		}

		order.QtyAssembled = input.QtyAssembled
		order.Status = input.Status
		if err := tx.SaveProgress(ctx, order); err != nil {
			return err
		}
		if input.Status == StatusDone {
			if err := tx.InsertPackagingOrder(ctx, order.WorkOrderID, order.ItemID, order.QtyTotal); err != nil {
				return err
			}
		}
		result = order
		return nil
	})
	if err != nil {
		return View{}, err
	}

	s.recordAudit(ctx, id, input)
	return s.view(ctx, result)
}

func (s *Service) view(ctx context.Context, o Order) (View, error) {
	sku, name, err := s.repo.ItemInfo(ctx, o.ItemID)
	if err != nil {
		return View{}, err
	}
	return View{
		ID:           o.ID,
		SKU:          sku,
		ItemName:     name,
		QtyTotal:     o.QtyTotal,
		QtyAssembled: o.QtyAssembled,
		Status:       o.Status,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, id int64, input UpdateInput) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   "assembly:update",
		Entity:   "assembly_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta: map[string]any{
			"status":        input.Status,
			"qty_assembled": input.QtyAssembled,
		},
	})
}
