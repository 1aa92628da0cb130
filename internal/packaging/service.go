package packaging

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// RepositoryPort abstracts packaging persistence.
type RepositoryPort interface {
	ListViews(ctx context.Context) ([]View, error)
	ItemInfo(ctx context.Context, itemID int64) (sku, name string, err error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// PlannerPort re-runs the production requirement recompute after packed
// quantity changes the available stock picture.
type PlannerPort interface {
	Recalculate(ctx context.Context) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements packaging progress semantics.
type Service struct {
	repo    RepositoryPort
	planner PlannerPort
	audit   AuditPort
	now     func() time.Time
}

// NewService builds Service. planner may be nil in tests.
func NewService(repo RepositoryPort, planner PlannerPort, audit AuditPort) *Service {
	return &Service{repo: repo, planner: planner, audit: audit, now: time.Now}
}

// List returns all packaging orders with item details.
func (s *Service) List(ctx context.Context) ([]View, error) {
	return s.repo.ListViews(ctx)
}

// Update applies a progress update with the same fork-on-partial-completion
// pattern as assembly. Every accepted update credits the item's on-hand
// quantity by the packed delta and appends an IN ledger row, then re-runs
// the requirement planner since available stock changed.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (View, error) {
	if !input.Status.Valid() {
		return View{}, ErrInvalidStatus
	}
	if input.QtyPacked <= 0 {
		return View{}, ErrInvalidQuantity
	}

	var result Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if input.QtyPacked > order.QtyTotal {
			return ErrInvalidQuantity
		}

		// Inventory is credited incrementally as units are packed.
		if delta := input.QtyPacked - order.QtyPacked; delta != 0 {
			qty, err := tx.GetItemQtyForUpdate(ctx, order.ItemID)
			if err != nil {
				return err
			}
			if err := tx.SetItemQuantity(ctx, order.ItemID, qty+delta); err != nil {
				return err
			}
			if err := tx.InsertLedgerIn(ctx, order.ItemID, delta, order.ID); err != nil {
				return err
			}
		}

		if input.Status == StatusDone && input.QtyPacked < order.QtyTotal {
			completedAt := s.now().UTC()
			completed := Order{
				WorkOrderID: order.WorkOrderID,
				ItemID:      order.ItemID,
				QtyTotal:    input.QtyPacked,
				QtyPacked:   input.QtyPacked,
				Status:      StatusDone,
				CompletedAt: &completedAt,
			}
			completedID, err := tx.InsertCompleted(ctx, completed)
			if err != nil {
				return err
			}
			completed.ID = completedID

			order.QtyTotal -= input.QtyPacked
			order.QtyPacked = 0
			order.Status = StatusPlanned
			if err := tx.SaveProgress(ctx, order); err != nil {
				return err
			}
			result = completed
			return nil
		}

		order.QtyPacked = input.QtyPacked
		order.Status = input.Status
		if input.Status == StatusDone {
			completedAt := s.now().UTC()
			order.CompletedAt = &completedAt
		}
		if err := tx.SaveProgress(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return View{}, err
	}

	if s.planner != nil {
		if err := s.planner.Recalculate(ctx); err != nil {
			return View{}, fmt.Errorf("recalculate requirements: %w", err)
		}
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
		ID:        o.ID,
		SKU:       sku,
		ItemName:  name,
		QtyTotal:  o.QtyTotal,
		QtyPacked: o.QtyPacked,
		Status:    o.Status,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, id int64, input UpdateInput) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   "packaging:update",
		Entity:   "packaging_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta: map[string]any{
			"status":     input.Status,
			"qty_packed": input.QtyPacked,
		},
	})
}
