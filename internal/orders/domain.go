package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
)

// Status enumerates purchase order states.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingDispatch Status = "PENDING_DISPATCH"
	StatusConfirmed       Status = "CONFIRMED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingDispatch, StatusConfirmed:
		return true
	}
	return false
}

// PurchaseOrder represents customer demand pulled from finished-goods stock.
type PurchaseOrder struct {
	ID             int64           `json:"id"`
	Status         Status          `json:"status"`
	CustomerName   string          `json:"customer_name"`
	SalesPerson    string          `json:"sales_person"`
	OrderTimestamp time.Time       `json:"order_timestamp"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PurchaseOrderLine is one item demand line. remaining = qty - dispatched_qty
// drives both demand aggregation and dispatch validation.
type PurchaseOrderLine struct {
	ID              int64           `json:"id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	ItemID          int64           `json:"item_id"`
	Qty             int64           `json:"qty"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	DispatchedQty   float64         `json:"dispatched_qty"`
}

// Remaining returns the undispatched balance of the line.
func (l PurchaseOrderLine) Remaining() int64 {
	return l.Qty - int64(l.DispatchedQty)
}

// LineView is the read model of a line joined with its item.
type LineView struct {
	SKU           string `json:"sku"`
	ItemName      string `json:"item_name"`
	Quantity      int64  `json:"quantity"`
	DispatchedQty int64  `json:"dispatched_qty"`
	RemainingQty  int64  `json:"remaining_qty"`
}

// OrderHistory is a purchase order with its line read models.
type OrderHistory struct {
	ID             int64      `json:"id"`
	CustomerName   string     `json:"customer_name"`
	SalesPerson    string     `json:"sales_person"`
	OrderTimestamp time.Time  `json:"order_timestamp"`
	Status         Status     `json:"status"`
	Lines          []LineView `json:"lines"`
}

// DispatchLog is an immutable audit record of one dispatch settlement line.
type DispatchLog struct {
	ID              int64     `json:"id"`
	PurchaseOrderID int64     `json:"purchase_order_id"`
	Code            string    `json:"code"`
	SKU             string    `json:"sku"`
	ItemName        string    `json:"item_name"`
	DispatchQty     int64     `json:"dispatch_qty"`
	RejectedQty     int64     `json:"rejected_qty"`
	PassedQty       int64     `json:"passed_qty"`
	ProofPublicID   string    `json:"proof_public_id,omitempty"`
	ProofVersion    string    `json:"proof_version,omitempty"`
	ProofFormat     string    `json:"proof_format,omitempty"`
	QCName          string    `json:"qc_name"`
	QCDate          string    `json:"qc_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// QCLine carries quality-control counts for one SKU within a dispatch.
type QCLine struct {
	SKU            string `json:"sku"`
	DispatchQty    int64  `json:"dispatch_qty"`
	Passed         int64  `json:"passed"`
	Rejected       int64  `json:"rejected"`
	Replaced       bool   `json:"replaced"`
	ReplacementQty int64  `json:"replacement_qty"`
}

// Required returns the total stock a QC line consumes: everything inspected
// plus replacements handed out for rejects.
func (q QCLine) Required() int64 {
	required := q.Passed + q.Rejected
	if q.Replaced {
		required += q.ReplacementQty
	}
	return required
}

// QCSubmission is a batch quality-control submission for one purchase order.
// Proof references are opaque; they are stored and echoed, never interpreted.
type QCSubmission struct {
	QCName        string   `json:"qc_name"`
	QCDate        string   `json:"qc_date"`
	ProofPublicID string   `json:"proof_public_id,omitempty"`
	ProofVersion  string   `json:"proof_version,omitempty"`
	ProofFormat   string   `json:"proof_format,omitempty"`
	Lines         []QCLine `json:"lines"`
}

var (
	// ErrOrderNotFound indicates the purchase order does not exist.
	ErrOrderNotFound = fmt.Errorf("orders: %w: purchase order", httpx.ErrNotFound)
	// ErrNoLines indicates an order without any lines.
	ErrNoLines = fmt.Errorf("orders: %w: at least one line item is required", httpx.ErrValidation)
	// ErrUnknownSKU indicates a line referencing a SKU that does not exist.
	ErrUnknownSKU = fmt.Errorf("orders: %w: unknown sku", httpx.ErrValidation)
	// ErrInvalidStatus indicates a status outside the order lifecycle.
	ErrInvalidStatus = fmt.Errorf("orders: %w: invalid status", httpx.ErrValidation)
	// ErrMissingQCLine indicates an order line with no matching QC line.
	ErrMissingQCLine = fmt.Errorf("orders: %w: missing qc line", httpx.ErrValidation)
	// ErrInvalidQC indicates malformed QC quantities.
	ErrInvalidQC = fmt.Errorf("orders: %w: invalid qc quantities", httpx.ErrValidation)
	// ErrDispatchExceedsRemaining indicates dispatch qty above the line balance.
	ErrDispatchExceedsRemaining = fmt.Errorf("orders: %w: dispatch qty exceeds remaining", httpx.ErrValidation)
	// ErrInsufficientStock indicates on-hand quantity below the required total.
	ErrInsufficientStock = fmt.Errorf("orders: %w: insufficient stock", httpx.ErrConflict)
)
