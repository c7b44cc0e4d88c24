// Package dispatch implements the dispatch-allocation engine: planning truck
// loads from an inventory snapshot, interactive preview editing, and the
// transactional commit that issues challan numbers and moves stock.
package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a challan.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusSent              Status = "SENT"
	StatusPartiallyReturned Status = "PARTIALLY_RETURNED"
	StatusReturned          Status = "RETURNED"
	StatusCancelled         Status = "CANCELLED"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPartiallyReturned, StatusReturned, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanCancel checks if a challan can still be cancelled.
func (s Status) CanCancel() bool {
	return s == StatusDraft || s == StatusSent
}

// CanReturn checks if a challan can accept returns.
func (s Status) CanReturn() bool {
	return s == StatusSent || s == StatusPartiallyReturned
}

// DispatchType distinguishes deliveries to a project from site transfers.
type DispatchType string

const (
	TypeDelivery DispatchType = "DELIVERY"
	TypeTransfer DispatchType = "TRANSFER"
)

// IsValid checks if the dispatch type is valid.
func (t DispatchType) IsValid() bool {
	return t == TypeDelivery || t == TypeTransfer
}

// Line is the allocatable unit: one item (or a fragment of one after a split)
// assigned to a truck.
type Line struct {
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	// LoadingOrder controls physical loading sequence; smaller loads first.
	LoadingOrder int `json:"loading_order"`
	Quantity     int `json:"quantity"`
	// WeightPerUnit is nil for unweighed items, which count as 1 capacity
	// unit per unit of quantity.
	WeightPerUnit *float64 `json:"weight_per_unit,omitempty"`
	TotalWeight   float64  `json:"total_weight"`
	HSNCode       string   `json:"hsn_code,omitempty"`
}

// UnitWeight returns the effective weight of a single unit.
func (l *Line) UnitWeight() float64 {
	if l.WeightPerUnit != nil {
		return *l.WeightPerUnit
	}
	return 1
}

// Recompute rederives TotalWeight from quantity and unit weight. TotalWeight
// is never an independently stored fact.
func (l *Line) Recompute() {
	l.TotalWeight = l.UnitWeight() * float64(l.Quantity)
}

// TruckMeta carries operator-entered dispatch details for one truck.
type TruckMeta struct {
	PlateNumber     string  `json:"plate_number,omitempty"`
	DriverName      string  `json:"driver_name,omitempty"`
	TransporterName string  `json:"transporter_name,omitempty"`
	ConsignmentNote string  `json:"consignment_note,omitempty"`
	DispatchFrom    string  `json:"dispatch_from,omitempty"`
	DispatchTo      string  `json:"dispatch_to,omitempty"`
	DeclaredAmount  float64 `json:"declared_amount,omitempty"`
}

// TruckPlan is one truck's proposed load within a preview.
type TruckPlan struct {
	// TruckNumber is 1-based position within the preview, not a persistence key.
	TruckNumber int       `json:"truck_number"`
	Capacity    float64   `json:"capacity"`
	Lines       []Line    `json:"lines"`
	TotalWeight float64   `json:"total_weight"`
	// RemainingCapacity may go negative during manual editing; the committer
	// refuses to commit such a truck.
	RemainingCapacity float64   `json:"remaining_capacity"`
	Meta              TruckMeta `json:"meta"`
}

// Recompute rederives the truck's weight totals from its lines.
func (t *TruckPlan) Recompute() {
	total := 0.0
	for i := range t.Lines {
		t.Lines[i].Recompute()
		total += t.Lines[i].TotalWeight
	}
	t.TotalWeight = total
	t.RemainingCapacity = t.Capacity - total
}

// Preview is the full proposed assignment held by the editing client. It is a
// plain value: the engine keeps no state between edit calls.
type Preview struct {
	Capacity float64     `json:"capacity"`
	Trucks   []TruckPlan `json:"trucks"`
	Summary  Summary     `json:"summary"`
}

// Summary aggregates a preview for display.
type Summary struct {
	TruckCount  int      `json:"truck_count"`
	TotalItems  int      `json:"total_items"`
	TotalWeight float64  `json:"total_weight"`
	Categories  []string `json:"categories"`
}

// Recompute rederives every truck's totals, renumbers trucks, and rebuilds
// the summary. Called after every structural edit.
func (p *Preview) Recompute() {
	totalItems := 0
	totalWeight := 0.0
	var categories []string
	seen := make(map[string]bool)
	for i := range p.Trucks {
		p.Trucks[i].TruckNumber = i + 1
		p.Trucks[i].Recompute()
		totalWeight += p.Trucks[i].TotalWeight
		for _, line := range p.Trucks[i].Lines {
			totalItems += line.Quantity
			if !seen[line.CategoryName] {
				seen[line.CategoryName] = true
				categories = append(categories, line.CategoryName)
			}
		}
	}
	p.Summary = Summary{
		TruckCount:  len(p.Trucks),
		TotalItems:  totalItems,
		TotalWeight: totalWeight,
		Categories:  categories,
	}
}

// QuantityByItem sums quantities per item across the whole preview.
func (p *Preview) QuantityByItem() map[int64]int {
	totals := make(map[int64]int)
	for _, truck := range p.Trucks {
		for _, line := range truck.Lines {
			totals[line.ItemID] += line.Quantity
		}
	}
	return totals
}

// Challan is a persisted dispatch document.
type Challan struct {
	ID           int64        `json:"id"`
	Ref          uuid.UUID    `json:"ref"`
	Number       string       `json:"number"`
	ProjectID    int64        `json:"project_id"`
	SourceSiteID *int64       `json:"source_site_id,omitempty"`
	Type         DispatchType `json:"dispatch_type"`
	Status       Status       `json:"status"`
	Capacity     float64      `json:"capacity"`
	TotalWeight  float64      `json:"total_weight"`
	Meta         TruckMeta    `json:"meta"`
	CreatedBy    int64        `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	Lines        []ChallanLine `json:"lines,omitempty"`
}

// ChallanLine is one dispatched item on a challan.
type ChallanLine struct {
	ID               int64    `json:"id"`
	ChallanID        int64    `json:"challan_id"`
	ItemID           int64    `json:"item_id"`
	ItemName         string   `json:"item_name"`
	Quantity         int      `json:"quantity"`
	WeightPerUnit    *float64 `json:"weight_per_unit,omitempty"`
	HSNCode          string   `json:"hsn_code,omitempty"`
	ReturnedQuantity int      `json:"returned_quantity"`
}

// SequencePrefix prefixes every challan number.
const SequencePrefix = "CH"

// FormatSequence renders a sequence value as the user-visible challan number,
// zero-padded to five digits.
func FormatSequence(n int64) string {
	return fmt.Sprintf("%s-%05d", SequencePrefix, n)
}

// ParseSequence extracts the numeric value from a challan number.
func ParseSequence(number string) (int64, error) {
	raw, ok := strings.CutPrefix(number, SequencePrefix+"-")
	if !ok {
		return 0, fmt.Errorf("dispatch: malformed challan number %q", number)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dispatch: malformed challan number %q: %w", number, err)
	}
	return n, nil
}
