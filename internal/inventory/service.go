package inventory

import (
	"context"
	"fmt"

	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	GetBySKU(ctx context.Context, sku string) (Item, error)
	Create(ctx context.Context, it Item) (int64, error)
	Update(ctx context.Context, it Item) error
	Delete(ctx context.Context, id int64) error
	ListLedger(ctx context.Context, itemID int64) ([]LedgerEntry, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates item and stock ledger operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all items.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new item.
func (s *Service) Create(ctx context.Context, it Item) (Item, error) {
	if it.Quantity < 0 || it.ReorderLevel < 0 {
		return Item{}, ErrInvalidQuantity
	}
	if it.Unit == "" {
		it.Unit = "pcs"
	}
	id, err := s.repo.Create(ctx, it)
	if err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites an item's master data.
func (s *Service) Update(ctx context.Context, it Item) (Item, error) {
	if it.Quantity < 0 || it.ReorderLevel < 0 {
		return Item{}, ErrInvalidQuantity
	}
	if err := s.repo.Update(ctx, it); err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, it.ID)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ListLedger returns the stock ledger trail for one item.
func (s *Service) ListLedger(ctx context.Context, itemID int64) ([]LedgerEntry, error) {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListLedger(ctx, itemID)
}

// PostAdjustment applies a manual quantity delta under the item row lock and
// appends an ADJUST ledger entry.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Item, error) {
	if input.Delta == 0 {
		return Item{}, ErrInvalidQuantity
	}
	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		newQty := item.Quantity + input.Delta
		if newQty < 0 {
			return ErrNegativeStock
		}
		if err := tx.SetQuantity(ctx, item.ID, newQty); err != nil {
			return err
		}
		if _, err := tx.InsertLedgerEntry(ctx, LedgerEntry{
			ItemID:  item.ID,
			Qty:     float64(input.Delta),
			TxnType: TransactionTypeAdjust,
			RefType: RefTypeManual,
		}); err != nil {
			return err
		}
		item.Quantity = newQty
		updated = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.ActorFromContext(ctx),
			Action:   "inventory:adjust",
			Entity:   "item",
			EntityID: fmt.Sprintf("%d", updated.ID),
			Meta: map[string]any{
				"sku":   updated.SKU,
				"delta": input.Delta,
				"note":  input.Note,
			},
		})
	}
	return updated, nil
}
