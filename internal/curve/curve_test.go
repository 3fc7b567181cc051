package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridmarket/spot-engine/internal/clearing"
	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func participant(id string, role model.Role, capacity, price float64) model.Participant {
	return model.Participant{ID: id, Name: "name-" + id, Role: role, Capacity: d(capacity), Price: d(price)}
}

type corner struct {
	q, p  float64
	label string
}

func requireCorners(t *testing.T, got []model.CurvePoint, want []corner) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		require.Truef(t, got[i].Quantity.Equal(d(w.q)), "point %d quantity: got %s want %v", i, got[i].Quantity, w.q)
		require.Truef(t, got[i].Price.Equal(d(w.p)), "point %d price: got %s want %v", i, got[i].Price, w.p)
		require.Equal(t, w.label, got[i].Label, "point %d label", i)
	}
}

func TestProject_StepGeometry(t *testing.T) {
	book := meritorder.Build([]model.Participant{
		participant("g2", model.RoleGenerator, 50, 20),
		participant("g1", model.RoleGenerator, 100, 10),
		participant("l1", model.RoleLoad, 80, 60),
		participant("l2", model.RoleLoad, 40, 90),
	})

	c := Project(book)

	requireCorners(t, c.Supply, []corner{
		{0, 10, LabelStart},
		{0, 10, "name-g1"},
		{100, 10, "name-g1"},
		{100, 20, "name-g2"},
		{150, 20, "name-g2"},
		{150, 30, LabelEnd},
	})
	requireCorners(t, c.Demand, []corner{
		{0, 90, LabelStart},
		{0, 90, "name-l2"},
		{40, 90, "name-l2"},
		{40, 60, "name-l1"},
		{120, 60, "name-l1"},
		{120, 0, LabelEnd},
	})
	require.True(t, c.MaxQuantity.Equal(d(165)), "max quantity: got %s", c.MaxQuantity)
}

func TestProject_EmptySides(t *testing.T) {
	c := Project(meritorder.Build([]model.Participant{
		participant("l1", model.RoleLoad, 10, 5),
	}))
	require.Empty(t, c.Supply)
	require.Len(t, c.Demand, 4)
	require.True(t, c.MaxQuantity.Equal(d(11)), "max quantity: got %s", c.MaxQuantity)

	c = Project(meritorder.Build(nil))
	require.Empty(t, c.Supply)
	require.Empty(t, c.Demand)
	require.True(t, c.MaxQuantity.IsZero())
}

func TestProject_TiesFollowMeritOrder(t *testing.T) {
	book := meritorder.Build([]model.Participant{
		participant("b", model.RoleGenerator, 50, 30),
		participant("a", model.RoleGenerator, 20, 30),
	})
	c := Project(book)

	// a sorts before b, so its block is drawn first.
	require.Equal(t, "name-a", c.Supply[1].Label)
	require.True(t, c.Supply[2].Quantity.Equal(d(20)))
	require.Equal(t, "name-b", c.Supply[3].Label)
}

func TestNewChart_MarkerOnSupplyCurve(t *testing.T) {
	ps := []model.Participant{
		participant("A", model.RoleGenerator, 100, 10),
		participant("B", model.RoleGenerator, 100, 20),
		participant("C", model.RoleLoad, 150, 25),
	}
	engine, err := clearing.NewEngine(clearing.DefaultEpsilon)
	require.NoError(t, err)

	book := meritorder.Build(ps)
	chart := NewChart(Project(book), engine.ComputeBook(book))

	require.True(t, chart.ClearingPrice.Equal(d(20)))
	require.True(t, chart.ClearedVolume.Equal(d(150)))

	// The equilibrium point lies on the horizontal segment of the marginal block.
	var onCurve bool
	for i := 1; i < len(chart.Supply); i++ {
		a, b := chart.Supply[i-1], chart.Supply[i]
		if a.Price.Equal(chart.ClearingPrice) && b.Price.Equal(chart.ClearingPrice) &&
			a.Quantity.LessThanOrEqual(chart.ClearedVolume) && b.Quantity.GreaterThanOrEqual(chart.ClearedVolume) {
			onCurve = true
		}
	}
	require.True(t, onCurve, "equilibrium (%s, %s) not on supply curve", chart.ClearedVolume, chart.ClearingPrice)
}
