package dispatch

import (
	"errors"
	"fmt"
)

// Planning and editing errors. All recoverable locally, none touch persisted state.
var (
	ErrInvalidCapacity   = errors.New("dispatch: truck capacity must be positive")
	ErrNoItems           = errors.New("dispatch: no items to dispatch")
	ErrInvalidQuantity   = errors.New("dispatch: quantity must not be negative")
	ErrInvalidTruckCount = errors.New("dispatch: truck count must be at least 1")
	ErrTruckNotFound     = errors.New("dispatch: truck index out of range")
	ErrLineNotFound      = errors.New("dispatch: line index out of range")
)

// Commit errors.
var (
	ErrChallanNotFound = errors.New("dispatch: challan not found")
	ErrCannotCancel    = errors.New("dispatch: challan cannot be cancelled in its current status")
	ErrCannotReturn    = errors.New("dispatch: challan cannot accept returns in its current status")
	ErrEmptyTruck      = errors.New("dispatch: truck has no lines")
)

// OverCapacityError reports a truck whose load exceeds its capacity at commit
// time. Over-capacity is tolerated while editing, never when committing.
type OverCapacityError struct {
	TruckNumber int
	Capacity    float64
	TotalWeight float64
}

func (e *OverCapacityError) Error() string {
	return fmt.Sprintf("dispatch: truck %d over capacity: weight %.2f exceeds capacity %.2f",
		e.TruckNumber, e.TotalWeight, e.Capacity)
}

// InsufficientStockError names the offending item and both quantities so the
// operator can correct the input without guessing.
type InsufficientStockError struct {
	ItemID    int64
	ItemName  string
	Available int
	Required  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("dispatch: insufficient stock for %s (item %d). Available: %d, Required: %d",
		e.ItemName, e.ItemID, e.Available, e.Required)
}

// ItemNotFoundError names the unknown item referenced by a commit payload.
type ItemNotFoundError struct {
	ItemID int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("dispatch: item %d not found", e.ItemID)
}

// ReturnExceedsError reports a return of more than remains dispatched.
type ReturnExceedsError struct {
	ItemID    int64
	Remaining int
	Requested int
}

func (e *ReturnExceedsError) Error() string {
	return fmt.Sprintf("dispatch: return of item %d exceeds outstanding quantity: outstanding %d, requested %d",
		e.ItemID, e.Remaining, e.Requested)
}
