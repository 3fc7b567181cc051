// Package meritorder splits a participant snapshot into supply and demand
// and ranks each side in merit order.
//
// Generators rank by ascending offer price, loads by descending bid price.
// Equal prices fall back to ascending participant id, so the order is
// fully deterministic. The clearing engine and the curve projector both
// consume a Book built here; neither sorts on its own.
package meritorder

import (
	"cmp"
	"slices"

	"github.com/gridmarket/spot-engine/internal/model"
)

// Book holds both sides of the market in merit order.
type Book struct {
	Generators []model.Participant // cheapest offer first
	Loads      []model.Participant // highest bid first
}

// Empty reports whether either side has no participants, in which case
// no trade is possible.
func (b Book) Empty() bool {
	return len(b.Generators) == 0 || len(b.Loads) == 0
}

// Build partitions participants by role and sorts each side.
// The input slice is left untouched.
func Build(participants []model.Participant) Book {
	var b Book
	for _, p := range participants {
		switch p.Role {
		case model.RoleGenerator:
			b.Generators = append(b.Generators, p)
		case model.RoleLoad:
			b.Loads = append(b.Loads, p)
		}
	}
	slices.SortFunc(b.Generators, CompareGenerators)
	slices.SortFunc(b.Loads, CompareLoads)
	return b
}

// CompareGenerators orders offers by ascending price, then id.
func CompareGenerators(a, b model.Participant) int {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// CompareLoads orders bids by descending price, then id.
func CompareLoads(a, b model.Participant) int {
	if c := b.Price.Cmp(a.Price); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortForDisplay returns a copy of participants with all generators first
// followed by all loads, each side in merit order.
func SortForDisplay(participants []model.Participant) []model.Participant {
	b := Build(participants)
	out := make([]model.Participant, 0, len(b.Generators)+len(b.Loads))
	out = append(out, b.Generators...)
	return append(out, b.Loads...)
}
