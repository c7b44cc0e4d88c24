package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func previewFixture(t *testing.T) *Preview {
	t.Helper()
	preview, err := Plan([]Line{steelRods(12), cementBags(3)}, 50)
	require.NoError(t, err)
	require.Len(t, preview.Trucks, 2)
	preview.Trucks[0].Meta = TruckMeta{PlateNumber: "KA-01-1234", DispatchFrom: "Central Yard", DispatchTo: "Tower B"}
	return preview
}

func TestSetLineQuantity(t *testing.T) {
	preview := previewFixture(t)

	require.NoError(t, preview.SetLineQuantity(1, 1, 10))
	require.Equal(t, 10, preview.Trucks[1].Lines[1].Quantity)
	require.InDelta(t, 30, preview.Trucks[1].TotalWeight, 0.0001)
	require.Equal(t, 22, preview.Summary.TotalItems)
}

func TestSetLineQuantityOverflowIsFlagged(t *testing.T) {
	preview := previewFixture(t)

	// Pushing the second truck past capacity is allowed; the overload shows
	// up as negative remaining capacity for the operator to resolve.
	require.NoError(t, preview.SetLineQuantity(1, 0, 20))
	require.InDelta(t, -56, preview.Trucks[1].RemainingCapacity, 0.0001)
}

func TestSetLineQuantityValidation(t *testing.T) {
	preview := previewFixture(t)

	require.ErrorIs(t, preview.SetLineQuantity(0, 0, -1), ErrInvalidQuantity)
	require.ErrorIs(t, preview.SetLineQuantity(5, 0, 1), ErrTruckNotFound)
	require.ErrorIs(t, preview.SetLineQuantity(0, 5, 1), ErrLineNotFound)
}

func TestRemoveLineDropsEmptiedTruck(t *testing.T) {
	preview := previewFixture(t)

	require.NoError(t, preview.RemoveLine(0, 0))
	require.Len(t, preview.Trucks, 1)
	require.Equal(t, 1, preview.Trucks[0].TruckNumber)
	require.Equal(t, map[int64]int{1: 2, 2: 3}, preview.QuantityByItem())
}

func TestRemoveLineKeepsLastTruck(t *testing.T) {
	preview, err := Plan([]Line{cementBags(3)}, 50)
	require.NoError(t, err)

	require.NoError(t, preview.RemoveLine(0, 0))
	require.Len(t, preview.Trucks, 1)
	require.Empty(t, preview.Trucks[0].Lines)
	require.Equal(t, 0, preview.Summary.TotalItems)
}

func TestAddTruckInheritsMeta(t *testing.T) {
	preview := previewFixture(t)

	preview.AddTruck()
	require.Len(t, preview.Trucks, 3)

	added := preview.Trucks[2]
	require.Equal(t, 3, added.TruckNumber)
	require.InDelta(t, 50, added.RemainingCapacity, 0.0001)
	require.Equal(t, "Central Yard", added.Meta.DispatchFrom)
	require.Equal(t, "Tower B", added.Meta.DispatchTo)
	require.Empty(t, added.Meta.PlateNumber)
}

func TestRemoveTruckRebalancesOrphans(t *testing.T) {
	preview := previewFixture(t)
	before := preview.QuantityByItem()

	require.NoError(t, preview.RemoveTruck(0))
	require.Len(t, preview.Trucks, 1)
	require.Equal(t, before, preview.QuantityByItem())
	// Ten rods at 5 each on top of an already loaded truck overloads it.
	require.True(t, preview.Trucks[0].RemainingCapacity < 0)
}

func TestRemoveOnlyTruckIsNoop(t *testing.T) {
	preview, err := Plan([]Line{cementBags(3)}, 50)
	require.NoError(t, err)

	require.NoError(t, preview.RemoveTruck(0))
	require.Len(t, preview.Trucks, 1)
}

func TestRedistributeMergesFragments(t *testing.T) {
	preview := previewFixture(t)
	before := preview.QuantityByItem()

	require.NoError(t, preview.Redistribute(3))
	require.Len(t, preview.Trucks, 3)
	require.Equal(t, before, preview.QuantityByItem())

	// The split rod line is whole again before placement, so no truck holds
	// more than one line per item.
	for _, truck := range preview.Trucks {
		seen := make(map[int64]bool)
		for _, line := range truck.Lines {
			require.False(t, seen[line.ItemID])
			seen[line.ItemID] = true
		}
	}
	for _, truck := range preview.Trucks {
		require.Equal(t, "Central Yard", truck.Meta.DispatchFrom)
	}
}

func TestRedistributeValidation(t *testing.T) {
	preview := previewFixture(t)
	require.ErrorIs(t, preview.Redistribute(0), ErrInvalidTruckCount)
}
