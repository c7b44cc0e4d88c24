package dispatch

// Editing operations over a caller-held Preview. Every operation leaves the
// per-item quantity totals of the preview unchanged except SetLineQuantity,
// which is the operator explicitly changing a quantity.

// SetLineQuantity updates one line's quantity and rederives the owning
// truck's totals. Capacity overflow is not corrected here; it is surfaced to
// the operator through a negative remaining capacity.
func (p *Preview) SetLineQuantity(truckIdx, lineIdx, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	truck, err := p.truckAt(truckIdx)
	if err != nil {
		return err
	}
	if lineIdx < 0 || lineIdx >= len(truck.Lines) {
		return ErrLineNotFound
	}
	truck.Lines[lineIdx].Quantity = quantity
	p.Recompute()
	return nil
}

// RemoveLine deletes one line. A truck emptied by the removal is dropped
// unless it is the last truck in the preview.
func (p *Preview) RemoveLine(truckIdx, lineIdx int) error {
	truck, err := p.truckAt(truckIdx)
	if err != nil {
		return err
	}
	if lineIdx < 0 || lineIdx >= len(truck.Lines) {
		return ErrLineNotFound
	}
	truck.Lines = append(truck.Lines[:lineIdx], truck.Lines[lineIdx+1:]...)
	if len(truck.Lines) == 0 && len(p.Trucks) > 1 {
		p.Trucks = append(p.Trucks[:truckIdx], p.Trucks[truckIdx+1:]...)
	}
	p.Recompute()
	return nil
}

// AddTruck appends an empty truck inheriting the capacity and the dispatch
// from/to metadata of the first existing truck.
func (p *Preview) AddTruck() {
	truck := newTruck(p.Capacity)
	if len(p.Trucks) > 0 {
		first := p.Trucks[0]
		truck.Capacity = first.Capacity
		truck.RemainingCapacity = first.Capacity
		truck.Meta.DispatchFrom = first.Meta.DispatchFrom
		truck.Meta.DispatchTo = first.Meta.DispatchTo
	}
	p.Trucks = append(p.Trucks, truck)
	p.Recompute()
}

// RemoveTruck deletes one truck and redistributes its lines over the
// remaining trucks. Removing the only truck is a no-op.
func (p *Preview) RemoveTruck(truckIdx int) error {
	if len(p.Trucks) <= 1 {
		return nil
	}
	truck, err := p.truckAt(truckIdx)
	if err != nil {
		return err
	}
	orphaned := truck.Lines
	p.Trucks = append(p.Trucks[:truckIdx], p.Trucks[truckIdx+1:]...)
	p.Trucks = Rebalance(p.Trucks, orphaned)
	p.Recompute()
	return nil
}

// Redistribute pools every line in the preview and replaces the trucks with
// exactly truckCount fresh ones. Fragments of the same item are merged back
// together before placement. The first original truck's metadata seeds every
// regenerated truck as a starting point for operator edits.
func (p *Preview) Redistribute(truckCount int) error {
	if truckCount < 1 {
		return ErrInvalidTruckCount
	}

	pooled := p.pooledLines()
	var meta TruckMeta
	capacity := p.Capacity
	if len(p.Trucks) > 0 {
		meta = p.Trucks[0].Meta
		if p.Trucks[0].Capacity > 0 {
			capacity = p.Trucks[0].Capacity
		}
	}

	trucks := make([]TruckPlan, truckCount)
	for i := range trucks {
		trucks[i] = newTruck(capacity)
		trucks[i].Meta = meta
	}
	p.Trucks = Rebalance(trucks, pooled)
	p.Recompute()
	return nil
}

// pooledLines collapses all trucks into one line pool, merging fragments of
// the same item so a previously split item is considered whole again.
func (p *Preview) pooledLines() []Line {
	var pooled []Line
	index := make(map[int64]int)
	for _, truck := range p.Trucks {
		for _, line := range truck.Lines {
			if at, ok := index[line.ItemID]; ok {
				pooled[at].Quantity += line.Quantity
				pooled[at].Recompute()
				continue
			}
			index[line.ItemID] = len(pooled)
			line.Recompute()
			pooled = append(pooled, line)
		}
	}
	return pooled
}

func (p *Preview) truckAt(truckIdx int) (*TruckPlan, error) {
	if truckIdx < 0 || truckIdx >= len(p.Trucks) {
		return nil, ErrTruckNotFound
	}
	return &p.Trucks[truckIdx], nil
}
