package production

import (
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
)

// Status enumerates work order states.
type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// WorkOrder is the production plan for one item. Qty is the remaining
// quantity to produce; PlannedQty preserves the size the planner last set.
// At most one PLANNED work order per item exists at a time: the planner
// resizes the existing one instead of creating duplicates.
type WorkOrder struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"item_id"`
	Qty         float64    `json:"qty"`
	PlannedQty  float64    `json:"planned_qty"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// WorkOrderView is the read model joined with the item.
type WorkOrderView struct {
	ID       int64   `json:"id"`
	SKU      string  `json:"sku"`
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
	Status   Status  `json:"status"`
}

var (
	// ErrWorkOrderNotFound indicates the work order does not exist.
	ErrWorkOrderNotFound = fmt.Errorf("production: %w: work order", httpx.ErrNotFound)
	// ErrItemNotFound indicates the referenced SKU does not exist.
	ErrItemNotFound = fmt.Errorf("production: %w: sku", httpx.ErrNotFound)
	// ErrInvalidStatus indicates a status outside PLANNED/IN_PROGRESS/DONE.
	ErrInvalidStatus = fmt.Errorf("production: %w: invalid status", httpx.ErrValidation)
	// ErrInvalidQuantity indicates a non-positive produce quantity.
	ErrInvalidQuantity = fmt.Errorf("production: %w: quantity must be > 0", httpx.ErrValidation)
	// ErrExceedsRemaining indicates a produce quantity above the remaining plan.
	ErrExceedsRemaining = fmt.Errorf("production: %w: quantity exceeds remaining plan", httpx.ErrValidation)
)
