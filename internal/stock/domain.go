// Package stock is the append-only movement ledger. Every change to an
// item's authoritative quantity goes through a movement row recording the
// before and after values, so the ledger can always explain why a quantity
// changed.
package stock

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementOutward leaves the warehouse on a challan.
	MovementOutward MovementType = "OUTWARD"
	// MovementInward enters the warehouse (receiving, cancellations).
	MovementInward MovementType = "INWARD"
	// MovementReturn restores stock returned against a challan.
	MovementReturn MovementType = "RETURN"
	// MovementRepair tracks items sent out for repair.
	MovementRepair MovementType = "REPAIR"
	// MovementAdjust records manual corrections.
	MovementAdjust MovementType = "ADJUST"
)

// Movement is one ledger entry.
type Movement struct {
	ID       int64        `json:"id"`
	ItemID   int64        `json:"item_id"`
	Type     MovementType `json:"movement_type"`
	Quantity int          `json:"quantity"`
	// PreviousQuantity is the item's authoritative quantity immediately
	// before this movement, in transaction order.
	PreviousQuantity int        `json:"previous_quantity"`
	NewQuantity      int        `json:"new_quantity"`
	ProjectID        *int64     `json:"project_id,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	PerformedBy      int64      `json:"performed_by"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ErrInvalidQuantity indicates a zero or negative movement quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrItemNotFound indicates an unknown item.
var ErrItemNotFound = errors.New("stock: item not found")

// ErrNegativeStock indicates a movement that would drive quantity below zero.
var ErrNegativeStock = errors.New("stock: negative stock not allowed")
