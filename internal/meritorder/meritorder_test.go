package meritorder

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/model"
)

func gen(id string, capacity, price float64) model.Participant {
	return model.Participant{ID: id, Name: id, Role: model.RoleGenerator,
		Capacity: decimal.NewFromFloat(capacity), Price: decimal.NewFromFloat(price)}
}

func load(id string, capacity, price float64) model.Participant {
	return model.Participant{ID: id, Name: id, Role: model.RoleLoad,
		Capacity: decimal.NewFromFloat(capacity), Price: decimal.NewFromFloat(price)}
}

func ids(ps []model.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func equalIDs(t *testing.T, got []model.Participant, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

func TestBuild_SplitsAndSorts(t *testing.T) {
	in := []model.Participant{
		load("l1", 100, 30),
		gen("g2", 50, 20),
		load("l2", 100, 90),
		gen("g1", 50, 10),
		gen("g3", 50, 15),
	}

	b := Build(in)
	equalIDs(t, b.Generators, "g1", "g3", "g2")
	equalIDs(t, b.Loads, "l2", "l1")

	// Input must be left untouched.
	equalIDs(t, in, "l1", "g2", "l2", "g1", "g3")
}

func TestBuild_TieBreakByID(t *testing.T) {
	b := Build([]model.Participant{
		gen("b", 50, 30), gen("a", 50, 30), gen("c", 10, 5),
		load("y", 10, 40), load("x", 10, 40),
	})
	equalIDs(t, b.Generators, "c", "a", "b")
	equalIDs(t, b.Loads, "x", "y")
}

func TestBuild_Deterministic(t *testing.T) {
	in := []model.Participant{gen("b", 1, 1), gen("a", 1, 1), load("d", 1, 1), load("c", 1, 1)}
	first := Build(in)
	for i := 0; i < 20; i++ {
		again := Build(in)
		equalIDs(t, again.Generators, ids(first.Generators)...)
		equalIDs(t, again.Loads, ids(first.Loads)...)
	}
}

func TestBook_Empty(t *testing.T) {
	if !Build(nil).Empty() {
		t.Error("nil snapshot should be empty")
	}
	if !Build([]model.Participant{gen("g", 1, 1)}).Empty() {
		t.Error("book without loads should be empty")
	}
	if Build([]model.Participant{gen("g", 1, 1), load("l", 1, 1)}).Empty() {
		t.Error("book with both sides should not be empty")
	}
}

func TestSortForDisplay(t *testing.T) {
	out := SortForDisplay([]model.Participant{
		load("l1", 1, 10), gen("g1", 1, 50), load("l2", 1, 80), gen("g2", 1, 5),
	})
	equalIDs(t, out, "g2", "g1", "l2", "l1")
}
