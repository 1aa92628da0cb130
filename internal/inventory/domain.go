package inventory

import (
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
)

// TransactionType enumerates supported stock ledger movements.
type TransactionType string

const (
	// TransactionTypeIn represents an inbound movement (packaging credit).
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeOut represents an outbound movement (dispatch).
	TransactionTypeOut TransactionType = "OUT"
	// TransactionTypeAdjust indicates manual adjustments.
	TransactionTypeAdjust TransactionType = "ADJUST"
)

// Reference types recorded on ledger entries.
const (
	RefTypePurchaseOrder  = "PURCHASE_ORDER"
	RefTypePackagingOrder = "PACKAGING_ORDER"
	RefTypeManual         = "MANUAL"
)

// Item is a finished-goods stock-keeping unit. Quantity is the single source
// of truth for on-hand stock and never goes negative.
type Item struct {
	ID           int64     `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Quantity     int64     `json:"quantity"`
	ReorderLevel int64     `json:"reorder_level"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerEntry is one immutable row of the append-only stock ledger.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	Qty       float64         `json:"qty"`
	TxnType   TransactionType `json:"txn_type"`
	RefType   string          `json:"ref_type,omitempty"`
	RefID     int64           `json:"ref_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AdjustmentInput describes a manual stock adjustment.
type AdjustmentInput struct {
	ItemID int64
	Delta  int64
	Note   string
}

var (
	// ErrItemNotFound indicates the referenced item does not exist.
	ErrItemNotFound = fmt.Errorf("inventory: %w: item", httpx.ErrNotFound)
	// ErrSKUExists indicates a unique SKU collision on create/update.
	ErrSKUExists = fmt.Errorf("inventory: %w: sku already exists", httpx.ErrConflict)
	// ErrInvalidQuantity indicates a zero or out-of-range quantity.
	ErrInvalidQuantity = fmt.Errorf("inventory: %w: invalid quantity", httpx.ErrValidation)
	// ErrNegativeStock is returned when a movement would drive quantity below zero.
	ErrNegativeStock = fmt.Errorf("inventory: %w: negative stock not allowed", httpx.ErrConflict)
)
