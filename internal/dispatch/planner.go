package dispatch

import "sort"

// Plan builds a fresh preview from a set of lines and a per-truck capacity.
// It is the initial placement policy: lines are taken in loading order and
// packed greedily, and a truck once closed is never revisited. Given the same
// input the result is always identical.
func Plan(lines []Line, capacityPerTruck float64) (*Preview, error) {
	if capacityPerTruck <= 0 {
		return nil, ErrInvalidCapacity
	}
	if len(lines) == 0 {
		return nil, ErrNoItems
	}

	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	for i := range sorted {
		if sorted[i].Quantity < 0 {
			return nil, ErrInvalidQuantity
		}
		sorted[i].Recompute()
	}
	sortByLoadingOrder(sorted)

	var trucks []TruckPlan
	current := newTruck(capacityPerTruck)

	closeAndReopen := func() {
		trucks = append(trucks, current)
		current = newTruck(capacityPerTruck)
	}

	for _, line := range sorted {
		switch {
		case line.TotalWeight <= current.RemainingCapacity:
			appendLine(&current, line)

		case line.TotalWeight > capacityPerTruck:
			// The line as a whole can never fit a single truck: carve off as
			// many whole units as the open truck still takes, then continue
			// on a fresh truck.
			remaining := line.Quantity
			unit := line.UnitWeight()
			for remaining > 0 {
				fits := int(current.RemainingCapacity / unit)
				if fits > remaining {
					fits = remaining
				}
				if fits > 0 {
					fragment := line
					fragment.Quantity = fits
					fragment.Recompute()
					appendLine(&current, fragment)
					remaining -= fits
				} else if len(current.Lines) == 0 {
					// A single unit outweighs an empty truck. Load it anyway
					// and let the negative remaining capacity flag it.
					fragment := line
					fragment.Quantity = 1
					fragment.Recompute()
					appendLine(&current, fragment)
					remaining--
				}
				if remaining > 0 {
					closeAndReopen()
				}
			}

		default:
			// Doesn't fit what is left, but fits an empty truck.
			if len(current.Lines) > 0 {
				closeAndReopen()
			}
			appendLine(&current, line)
		}
	}
	if len(current.Lines) > 0 {
		trucks = append(trucks, current)
	}

	preview := &Preview{Capacity: capacityPerTruck, Trucks: trucks}
	preview.Recompute()
	return preview, nil
}

// Rebalance places loose lines into an existing set of trucks: first fit in
// truck order, and when a line fits nowhere within capacity it goes to the
// truck with the most remaining capacity even if that overloads it. Unlike
// the initial placement policy it may revisit any truck. The overload shows
// up as a negative remaining capacity and is surfaced, never hidden.
func Rebalance(trucks []TruckPlan, lines []Line) []TruckPlan {
	if len(trucks) == 0 {
		return trucks
	}
	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	for i := range sorted {
		sorted[i].Recompute()
	}
	sortByLoadingOrder(sorted)

	for _, line := range sorted {
		placed := false
		for i := range trucks {
			if line.TotalWeight <= trucks[i].RemainingCapacity {
				appendLine(&trucks[i], line)
				placed = true
				break
			}
		}
		if !placed {
			best := 0
			for i := range trucks {
				if trucks[i].RemainingCapacity > trucks[best].RemainingCapacity {
					best = i
				}
			}
			appendLine(&trucks[best], line)
		}
	}
	return trucks
}

func sortByLoadingOrder(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].LoadingOrder != lines[j].LoadingOrder {
			return lines[i].LoadingOrder < lines[j].LoadingOrder
		}
		return lines[i].ItemID < lines[j].ItemID
	})
}

func newTruck(capacity float64) TruckPlan {
	return TruckPlan{Capacity: capacity, RemainingCapacity: capacity}
}

func appendLine(truck *TruckPlan, line Line) {
	truck.Lines = append(truck.Lines, line)
	truck.TotalWeight += line.TotalWeight
	truck.RemainingCapacity = truck.Capacity - truck.TotalWeight
}
