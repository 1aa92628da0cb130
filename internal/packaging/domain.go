package packaging

import (
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
)

// Status tracks a packaging order through the line.
type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Order is one packaging batch spawned from a completed assembly slice.
// Follows the same fork-on-partial-completion pattern as assembly, with
// the addition that packed quantity credits the item's on-hand stock.
type Order struct {
	ID          int64      `json:"id"`
	WorkOrderID int64      `json:"work_order_id"`
	ItemID      int64      `json:"item_id"`
	QtyTotal    int64      `json:"qty_total"`
	QtyPacked   int64      `json:"qty_packed"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// View is the list/response shape with item details joined in.
type View struct {
	ID        int64  `json:"id"`
	SKU       string `json:"sku"`
	ItemName  string `json:"item_name"`
	QtyTotal  int64  `json:"qty_total"`
	QtyPacked int64  `json:"qty_packed"`
	Status    Status `json:"status"`
}

// UpdateInput carries a progress update for a packaging order.
type UpdateInput struct {
	Status    Status
	QtyPacked int64
}

var (
	ErrOrderNotFound   = fmt.Errorf("%w: packaging order not found", httpx.ErrNotFound)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid status", httpx.ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: invalid packed quantity", httpx.ErrValidation)
)
