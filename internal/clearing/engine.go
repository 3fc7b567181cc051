// Package clearing implements uniform-price (merit-order) clearing of a
// single-period electricity spot market.
//
// Generators are dispatched cheapest first against loads with the highest
// willingness to pay first. Every cleared unit trades at one price: the
// offer of the last generator dispatched (supply-side marginal pricing).
//
// Matching and allocation are two separate passes. Clear only produces
// (price, volume, marginal id); Allocate derives per-participant
// quantities and cashflows from those three values plus the merit-ordered
// book, so it can be re-run or audited on its own.
//
// All quantities use shopspring/decimal. The engine is stateless and
// safe for concurrent use.
package clearing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
)

var (
	// ErrInvalidEpsilon is returned when the exhaustion tolerance is negative.
	ErrInvalidEpsilon = errors.New("clearing: epsilon must not be negative")

	// DefaultEpsilon is the remaining-capacity tolerance (MW) below which a
	// block counts as fully dispatched or served.
	DefaultEpsilon = decimal.New(1, -3)
)

// Outcome is the raw result of the matching sweep.
type Outcome struct {
	Price      decimal.Decimal
	Volume     decimal.Decimal
	MarginalID string // "" when nothing cleared
}

// Engine clears merit-ordered books.
type Engine struct {
	epsilon decimal.Decimal
}

// NewEngine creates an engine with the given block exhaustion tolerance.
func NewEngine(epsilon decimal.Decimal) (*Engine, error) {
	if epsilon.IsNegative() {
		return nil, ErrInvalidEpsilon
	}
	return &Engine{epsilon: epsilon}, nil
}

// Epsilon returns the block exhaustion tolerance.
func (e *Engine) Epsilon() decimal.Decimal {
	return e.epsilon
}

func (e *Engine) exhausted(remaining decimal.Decimal) bool {
	return remaining.LessThanOrEqual(e.epsilon)
}

// Clear sweeps the two merit-ordered sides with one cursor each and
// returns the equilibrium price, volume and marginal generator.
//
// The sweep stops at the first pair where the load values energy below
// the generator's offer. Later generators only cost more and later loads
// only value less, so no later pair can trade either.
//
// The marginal generator is the last one Allocate gives a positive
// quantity, and its offer is the clearing price.
func (e *Engine) Clear(book meritorder.Book) Outcome {
	out := Outcome{Price: decimal.Zero, Volume: decimal.Zero}
	if book.Empty() {
		return out
	}

	gens, loads := book.Generators, book.Loads
	i, j := 0, 0
	genRem := gens[0].Capacity
	loadRem := loads[0].Capacity

	for i < len(gens) && j < len(loads) {
		g, l := gens[i], loads[j]
		if l.Price.LessThan(g.Price) {
			break
		}

		q := decimal.Min(genRem, loadRem)
		if q.IsPositive() {
			out.Volume = out.Volume.Add(q)
		}
		genRem = genRem.Sub(q)
		loadRem = loadRem.Sub(q)

		if e.exhausted(genRem) {
			i++
			if i < len(gens) {
				genRem = gens[i].Capacity
			}
		}
		if e.exhausted(loadRem) {
			j++
			if j < len(loads) {
				loadRem = loads[j].Capacity
			}
		}
	}

	// The sweep may drop a generator residue within epsilon that Allocate
	// still hands out, so the price-setting unit is taken from the same
	// block-by-block walk Allocate uses.
	if g, ok := lastDispatched(gens, out.Volume); ok {
		out.Price = g.Price
		out.MarginalID = g.ID
	}
	return out
}

// Compute runs the full pipeline on a participant snapshot:
// merit order, clearing, allocation and market surplus.
func (e *Engine) Compute(participants []model.Participant) model.ClearingResult {
	return e.ComputeBook(meritorder.Build(participants))
}

// ComputeBook is Compute for a book that is already in merit order.
func (e *Engine) ComputeBook(book meritorder.Book) model.ClearingResult {
	outcome := e.Clear(book)
	orders := Allocate(book, outcome)

	surplus := decimal.Zero
	for _, o := range orders {
		surplus = surplus.Add(o.Surplus)
	}

	return model.ClearingResult{
		ClearingPrice: outcome.Price,
		ClearedVolume: outcome.Volume,
		MarketSurplus: surplus,
		ClearedOrders: orders,
	}
}
