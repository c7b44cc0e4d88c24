package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func weightOf(v float64) *float64 {
	return &v
}

func steelRods(qty int) Line {
	return Line{ItemID: 1, ItemName: "Steel Rod", CategoryID: 1, CategoryName: "Steel", LoadingOrder: 1, Quantity: qty, WeightPerUnit: weightOf(5)}
}

func cementBags(qty int) Line {
	return Line{ItemID: 2, ItemName: "Cement Bag", CategoryID: 2, CategoryName: "Cement", LoadingOrder: 2, Quantity: qty, WeightPerUnit: weightOf(2)}
}

func quantitiesOf(lines []Line) map[int64]int {
	totals := make(map[int64]int)
	for _, l := range lines {
		totals[l.ItemID] += l.Quantity
	}
	return totals
}

func requireConserved(t *testing.T, preview *Preview, input []Line) {
	t.Helper()
	require.Equal(t, quantitiesOf(input), preview.QuantityByItem())
}

func TestPlanSingleTruck(t *testing.T) {
	input := []Line{steelRods(4), cementBags(10)}
	preview, err := Plan(input, 50)
	require.NoError(t, err)

	require.Len(t, preview.Trucks, 1)
	require.InDelta(t, 40, preview.Trucks[0].TotalWeight, 0.0001)
	require.InDelta(t, 10, preview.Trucks[0].RemainingCapacity, 0.0001)
	require.Equal(t, 1, preview.Trucks[0].TruckNumber)
	requireConserved(t, preview, input)
}

func TestPlanSplitsOversizedLine(t *testing.T) {
	// 12 rods at 5 each do not fit a 50-capacity truck; the first truck takes
	// ten whole rods and the remainder moves on with the cement.
	input := []Line{steelRods(12), cementBags(3)}
	preview, err := Plan(input, 50)
	require.NoError(t, err)

	require.Len(t, preview.Trucks, 2)

	first := preview.Trucks[0]
	require.Len(t, first.Lines, 1)
	require.Equal(t, 10, first.Lines[0].Quantity)
	require.InDelta(t, 0, first.RemainingCapacity, 0.0001)

	second := preview.Trucks[1]
	require.Len(t, second.Lines, 2)
	require.Equal(t, 2, second.Lines[0].Quantity)
	require.Equal(t, 3, second.Lines[1].Quantity)
	require.InDelta(t, 34, second.RemainingCapacity, 0.0001)

	requireConserved(t, preview, input)
	require.Equal(t, 15, preview.Summary.TotalItems)
	require.Equal(t, []string{"Steel", "Cement"}, preview.Summary.Categories)
}

func TestPlanLongSplit(t *testing.T) {
	input := []Line{{ItemID: 7, ItemName: "Shuttering Plate", CategoryName: "Shuttering", LoadingOrder: 3, Quantity: 100, WeightPerUnit: weightOf(10)}}
	preview, err := Plan(input, 220)
	require.NoError(t, err)

	require.Len(t, preview.Trucks, 5)
	for _, truck := range preview.Trucks[:4] {
		require.Equal(t, 22, truck.Lines[0].Quantity)
	}
	require.Equal(t, 12, preview.Trucks[4].Lines[0].Quantity)
	requireConserved(t, preview, input)
}

func TestPlanFollowsLoadingOrder(t *testing.T) {
	// Declared out of order; the plan loads by category loading order.
	input := []Line{cementBags(5), steelRods(3)}
	preview, err := Plan(input, 100)
	require.NoError(t, err)

	require.Len(t, preview.Trucks, 1)
	require.Equal(t, int64(1), preview.Trucks[0].Lines[0].ItemID)
	require.Equal(t, int64(2), preview.Trucks[0].Lines[1].ItemID)
}

func TestPlanDeterministic(t *testing.T) {
	input := []Line{steelRods(12), cementBags(3), {ItemID: 3, ItemName: "Clamp", CategoryName: "Hardware", LoadingOrder: 2, Quantity: 40}}
	a, err := Plan(input, 50)
	require.NoError(t, err)
	b, err := Plan(input, 50)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPlanUnweighedItemCountsAsOneUnit(t *testing.T) {
	input := []Line{{ItemID: 9, ItemName: "Safety Helmet", CategoryName: "Safety", LoadingOrder: 5, Quantity: 30}}
	preview, err := Plan(input, 25)
	require.NoError(t, err)

	require.Len(t, preview.Trucks, 2)
	require.Equal(t, 25, preview.Trucks[0].Lines[0].Quantity)
	require.Equal(t, 5, preview.Trucks[1].Lines[0].Quantity)
	requireConserved(t, preview, input)
}

func TestPlanUnitHeavierThanTruck(t *testing.T) {
	// A single unit outweighs the truck: it is still placed, one per truck,
	// and the overload is visible as negative remaining capacity.
	input := []Line{{ItemID: 4, ItemName: "Generator", CategoryName: "Plant", LoadingOrder: 1, Quantity: 2, WeightPerUnit: weightOf(80)}}
	preview, err := Plan(input, 50)
	require.NoError(t, err)

	require.Len(t, preview.Trucks, 2)
	for _, truck := range preview.Trucks {
		require.Equal(t, 1, truck.Lines[0].Quantity)
		require.InDelta(t, -30, truck.RemainingCapacity, 0.0001)
	}
	requireConserved(t, preview, input)
}

func TestPlanInputValidation(t *testing.T) {
	_, err := Plan([]Line{steelRods(1)}, 0)
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = Plan(nil, 50)
	require.ErrorIs(t, err, ErrNoItems)

	_, err = Plan([]Line{{ItemID: 1, Quantity: -1}}, 50)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRebalancePrefersFirstFit(t *testing.T) {
	trucks := []TruckPlan{newTruck(50), newTruck(50)}
	out := Rebalance(trucks, []Line{cementBags(5)})

	require.Len(t, out[0].Lines, 1)
	require.Empty(t, out[1].Lines)
}

func TestRebalanceOverloadsLeastLoadedTruck(t *testing.T) {
	trucks := []TruckPlan{newTruck(50), newTruck(50)}
	appendLine(&trucks[0], steelRods(9))
	appendLine(&trucks[1], steelRods(8))

	// 20 bags at 2 each fit neither truck; they land on the one with the most
	// room left and the overload is flagged.
	out := Rebalance(trucks, []Line{cementBags(20)})
	require.Len(t, out[1].Lines, 2)
	require.InDelta(t, -30, out[1].RemainingCapacity, 0.0001)
	require.Len(t, out[0].Lines, 1)
}

func TestRebalanceNoTrucks(t *testing.T) {
	require.Empty(t, Rebalance(nil, []Line{steelRods(1)}))
}
