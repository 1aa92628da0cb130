package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]PurchaseOrder, error)
	ListHistory(ctx context.Context) ([]OrderHistory, error)
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	Update(ctx context.Context, o PurchaseOrder) error
	Delete(ctx context.Context, id int64) error
	ListDispatchLogs(ctx context.Context, orderID int64) ([]DispatchLog, error)
	ResolveSKUs(ctx context.Context, skus []string) (map[string]int64, error)
}

// PlannerPort re-runs the production requirement recompute after demand
// changes.
type PlannerPort interface {
	Recalculate(ctx context.Context) error
}

// LockerPort serialises dispatch settlement per order across processes.
type LockerPort interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates purchase order lifecycle and dispatch settlement.
type Service struct {
	repo    RepositoryPort
	planner PlannerPort
	locker  LockerPort
	audit   AuditPort
}

// NewService builds Service. planner and locker may be nil in tests.
func NewService(repo RepositoryPort, planner PlannerPort, locker LockerPort, audit AuditPort) *Service {
	return &Service{repo: repo, planner: planner, locker: locker, audit: audit}
}

// CreateOrderInput describes a new purchase order with lines.
type CreateOrderInput struct {
	CustomerName   string
	SalesPerson    string
	OrderTimestamp time.Time
	Lines          []CreateOrderLine
}

// CreateOrderLine is one requested SKU.
type CreateOrderLine struct {
	SKU      string
	Quantity int64
	UnitCost decimal.Decimal
}

// List returns all purchase orders.
func (s *Service) List(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.List(ctx)
}

// ListHistory returns all purchase orders with line read models.
func (s *Service) ListHistory(ctx context.Context) ([]OrderHistory, error) {
	return s.repo.ListHistory(ctx)
}

// Get returns one purchase order.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a purchase order with lines. The order starts
// PENDING_DISPATCH and never deducts stock up front; fulfilment happens
// through dispatch settlement. The planner re-runs afterwards because new
// demand changes production targets.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, ErrNoLines
	}
	skus := make([]string, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: %s qty must be > 0", ErrInvalidQC, line.SKU)
		}
		skus = append(skus, line.SKU)
	}
	itemsBySKU, err := s.repo.ResolveSKUs(ctx, skus)
	if err != nil {
		return PurchaseOrder{}, err
	}
	for _, sku := range skus {
		if _, ok := itemsBySKU[sku]; !ok {
			return PurchaseOrder{}, fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
		}
	}

	ts := input.OrderTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	total := decimal.Zero
	for _, line := range input.Lines {
		total = total.Add(line.UnitCost.Mul(decimal.NewFromInt(line.Quantity)))
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, PurchaseOrder{
			Status:         StatusPendingDispatch,
			CustomerName:   input.CustomerName,
			SalesPerson:    input.SalesPerson,
			OrderTimestamp: ts,
			TotalAmount:    total,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID = id
		for _, line := range input.Lines {
			if _, err := tx.InsertLine(ctx, PurchaseOrderLine{
				PurchaseOrderID: id,
				ItemID:          itemsBySKU[line.SKU],
				Qty:             line.Quantity,
				UnitCost:        line.UnitCost,
			}); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	if s.planner != nil {
		if err := s.planner.Recalculate(ctx); err != nil {
			return PurchaseOrder{}, fmt.Errorf("recalculate requirements: %w", err)
		}
	}
	return s.repo.Get(ctx, orderID)
}

// Update rewrites the order header. Status must stay inside the lifecycle.
func (s *Service) Update(ctx context.Context, o PurchaseOrder) (PurchaseOrder, error) {
	if !o.Status.Valid() {
		return PurchaseOrder{}, ErrInvalidStatus
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return PurchaseOrder{}, err
	}
	return s.repo.Get(ctx, o.ID)
}

// Delete removes an order and its lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ListDispatchLogs returns the settlement trail for one order.
func (s *Service) ListDispatchLogs(ctx context.Context, orderID int64) ([]DispatchLog, error) {
	if _, err := s.repo.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListDispatchLogs(ctx, orderID)
}

// ApproveAndDispatch settles a batch QC submission against the order.
// Every line is validated before anything mutates; a failure on any line
// aborts the whole settlement with no side effects.
func (s *Service) ApproveAndDispatch(ctx context.Context, orderID int64, sub QCSubmission) (PurchaseOrder, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, shared.DispatchLockKey(orderID), 30*time.Second)
		if err != nil {
			return PurchaseOrder{}, err
		}
		defer release()
	}

	if _, err := s.repo.Get(ctx, orderID); err != nil {
		return PurchaseOrder{}, err
	}

	code := fmt.Sprintf("DSP-%s", uuid.NewString())
	qcBySKU := make(map[string]QCLine, len(sub.Lines))
	for _, qc := range sub.Lines {
		qcBySKU[qc.SKU] = qc
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := tx.GetLinesWithItemsForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}

		// Validation pass. No mutation happens until every line clears.
		// Stock requirements accumulate per item, an order may carry
		// several lines for the same item.
		neededByItem := make(map[int64]int64)
		for _, lw := range lines {
			qc, ok := qcBySKU[lw.SKU]
			if !ok {
				return fmt.Errorf("%w for %s", ErrMissingQCLine, lw.SKU)
			}
			if qc.DispatchQty <= 0 {
				return fmt.Errorf("%w: dispatch qty must be > 0 for %s", ErrInvalidQC, lw.SKU)
			}
			if qc.DispatchQty > lw.Line.Remaining() {
				return fmt.Errorf("%w for %s", ErrDispatchExceedsRemaining, lw.SKU)
			}
			if qc.Passed < 0 || qc.Rejected < 0 || (qc.Replaced && qc.ReplacementQty < 0) {
				return fmt.Errorf("%w for %s", ErrInvalidQC, lw.SKU)
			}
			if qc.Passed+qc.Rejected != qc.DispatchQty {
				return fmt.Errorf("%w: passed + rejected must equal dispatch qty for %s", ErrInvalidQC, lw.SKU)
			}
			neededByItem[lw.Line.ItemID] += qc.Required()
			if need := neededByItem[lw.Line.ItemID]; lw.ItemQty < need {
				return fmt.Errorf("%w for %s: available %d, needed %d", ErrInsufficientStock, lw.SKU, lw.ItemQty, need)
			}
		}

		// Commit pass. The on-hand balance is threaded through the loop
		// instead of taken from the per-line snapshot, so repeated items
		// deduct cumulatively.
		onHand := make(map[int64]int64, len(lines))
		for _, lw := range lines {
			if _, ok := onHand[lw.Line.ItemID]; !ok {
				onHand[lw.Line.ItemID] = lw.ItemQty
			}
		}
		allSettled := true
		for _, lw := range lines {
			qc := qcBySKU[lw.SKU]
			required := qc.Required()
			onHand[lw.Line.ItemID] -= required
			if err := tx.SetItemQuantity(ctx, lw.Line.ItemID, onHand[lw.Line.ItemID]); err != nil {
				return err
			}
			if err := tx.AddDispatchedQty(ctx, lw.Line.ID, qc.DispatchQty); err != nil {
				return err
			}
			if _, err := tx.InsertDispatchLog(ctx, DispatchLog{
				PurchaseOrderID: orderID,
				Code:            code,
				SKU:             lw.SKU,
				ItemName:        lw.ItemName,
				DispatchQty:     qc.DispatchQty,
				RejectedQty:     qc.Rejected,
				PassedQty:       qc.Passed,
				ProofPublicID:   sub.ProofPublicID,
				ProofVersion:    sub.ProofVersion,
				ProofFormat:     sub.ProofFormat,
				QCName:          sub.QCName,
				QCDate:          sub.QCDate,
			}); err != nil {
				return err
			}
			if err := tx.InsertLedgerOut(ctx, lw.Line.ItemID, required, orderID); err != nil {
				return err
			}
			if lw.Line.Remaining()-qc.DispatchQty > 0 {
				allSettled = false
			}
		}

		status := StatusPendingDispatch
		if allSettled {
			status = StatusConfirmed
		}
		return tx.SetOrderStatus(ctx, orderID, status)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.ActorFromContext(ctx),
			Action:   "orders:dispatch",
			Entity:   "purchase_order",
			EntityID: fmt.Sprintf("%d", orderID),
			Meta: map[string]any{
				"code":    code,
				"qc_name": sub.QCName,
				"qc_date": sub.QCDate,
				"lines":   len(sub.Lines),
			},
		})
	}
	return s.repo.Get(ctx, orderID)
}
