// Package inventory reads item master data and deployable-quantity snapshots.
// It is a pure read layer: planning and committing never write through it.
package inventory

import "errors"

// Item carries the master-data fields the dispatch engine needs.
type Item struct {
	ID                int64
	Name              string
	QuantityAvailable int
	// WeightPerUnit is nil when the item has never been weighed. Capacity
	// planning then counts each unit as 1 unit of capacity.
	WeightPerUnit *float64
	CategoryID    int64
	CategoryName  string
	LoadingOrder  int
	HSNCode       string
}

// SnapshotEntry is one item's deployable quantity within a snapshot scope.
type SnapshotEntry struct {
	ItemID   int64
	Quantity int
}

// ErrSiteNotFound indicates an unknown site id.
var ErrSiteNotFound = errors.New("inventory: site not found")

// ErrProjectNotFound indicates an unknown project id.
var ErrProjectNotFound = errors.New("inventory: project not found")
