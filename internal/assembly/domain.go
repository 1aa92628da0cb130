package assembly

import (
	"fmt"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
)

// Status tracks an assembly order through the line.
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

// Order is one assembly batch for a work order. A partially completed
// batch is never mutated in place past DONE: the completed slice forks
// into its own DONE row and the residual shrinks back to PLANNED.
type Order struct {
	ID           int64  `json:"id"`
	WorkOrderID  int64  `json:"work_order_id"`
	ItemID       int64  `json:"item_id"`
	QtyTotal     int64  `json:"qty_total"`
	QtyAssembled int64  `json:"qty_assembled"`
	Status       Status `json:"status"`
}

// View is the list/response shape with item details joined in.
type View struct {
	ID           int64  `json:"id"`
	SKU          string `json:"sku"`
	ItemName     string `json:"item_name"`
	QtyTotal     int64  `json:"qty_total"`
	QtyAssembled int64  `json:"qty_assembled"`
	Status       Status `json:"status"`
}

// UpdateInput carries a progress update for an assembly order.
type UpdateInput struct {
	Status       Status
	QtyAssembled int64
}

var (
	ErrOrderNotFound   = fmt.Errorf("%w: assembly order not found", httpx.ErrNotFound)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid status", httpx.ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: invalid assembled quantity", httpx.ErrValidation)
)
