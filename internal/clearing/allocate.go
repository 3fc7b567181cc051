package clearing

import (
	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
)

// Allocate walks each side of the book in merit order and hands out the
// cleared volume block by block. Every participant in the book gets exactly
// one ClearedOrder, generators first; participants past the cleared volume
// get a zero order.
//
//	generator: revenue = q × price,  surplus = revenue − q × offer
//	load:      cost    = q × price,  surplus = q × bid − cost
//
// Only the generator whose id matches outcome.MarginalID is marked marginal.
func Allocate(book meritorder.Book, outcome Outcome) []model.ClearedOrder {
	orders := make([]model.ClearedOrder, 0, len(book.Generators)+len(book.Loads))

	served := decimal.Zero
	for _, g := range book.Generators {
		q := share(g.Capacity, outcome.Volume, served)
		served = served.Add(q)

		revenue := q.Mul(outcome.Price)
		orders = append(orders, model.ClearedOrder{
			ParticipantID:   g.ID,
			ClearedQuantity: q,
			Revenue:         revenue,
			Cost:            decimal.Zero,
			Surplus:         revenue.Sub(q.Mul(g.Price)),
			IsMarginal:      outcome.MarginalID != "" && g.ID == outcome.MarginalID,
		})
	}

	served = decimal.Zero
	for _, l := range book.Loads {
		q := share(l.Capacity, outcome.Volume, served)
		served = served.Add(q)

		cost := q.Mul(outcome.Price)
		orders = append(orders, model.ClearedOrder{
			ParticipantID:   l.ID,
			ClearedQuantity: q,
			Revenue:         decimal.Zero,
			Cost:            cost,
			Surplus:         q.Mul(l.Price).Sub(cost),
		})
	}

	return orders
}

// lastDispatched returns the last generator in merit order that receives a
// positive share of volume.
func lastDispatched(gens []model.Participant, volume decimal.Decimal) (model.Participant, bool) {
	var last model.Participant
	found := false
	served := decimal.Zero
	for _, g := range gens {
		q := share(g.Capacity, volume, served)
		if !q.IsPositive() {
			break
		}
		served = served.Add(q)
		last, found = g, true
	}
	return last, found
}

// share is the part of capacity still needed to reach volume.
func share(capacity, volume, served decimal.Decimal) decimal.Decimal {
	need := volume.Sub(served)
	if !need.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(capacity, need)
}
