// Package curve projects merit-ordered books onto stepped supply and demand
// curves for charting. It performs no clearing; the book it consumes must
// come from meritorder.Build so the drawn curves agree with the computed
// clearing price.
package curve

import (
	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
)

// Labels of the leading and trailing sentinel points of each curve.
const (
	LabelStart = "Start"
	LabelEnd   = "End"
)

var (
	// SupplyTailFactor lifts the supply tail above the last offer so the
	// curve visibly rises past total capacity.
	SupplyTailFactor = decimal.NewFromFloat(1.5)

	// AxisPadding widens the quantity axis beyond the larger curve.
	AxisPadding = decimal.NewFromFloat(1.1)
)

// Curves holds the corner points of both step curves.
type Curves struct {
	Supply      []model.CurvePoint `json:"supply"`
	Demand      []model.CurvePoint `json:"demand"`
	MaxQuantity decimal.Decimal    `json:"max_quantity"` // x-axis bound
}

// Chart is Curves plus the equilibrium markers drawn as reference lines.
type Chart struct {
	Curves
	ClearingPrice decimal.Decimal `json:"clearing_price"`
	ClearedVolume decimal.Decimal `json:"cleared_volume"`
}

// Project builds both curves from a merit-ordered book.
func Project(book meritorder.Book) Curves {
	supply, supplyTotal := steps(book.Generators, func(last model.Participant) decimal.Decimal {
		return last.Price.Mul(SupplyTailFactor)
	})
	demand, demandTotal := steps(book.Loads, func(model.Participant) decimal.Decimal {
		return decimal.Zero
	})

	return Curves{
		Supply:      supply,
		Demand:      demand,
		MaxQuantity: decimal.Max(supplyTotal, demandTotal).Mul(AxisPadding),
	}
}

// NewChart combines curves with a clearing result.
func NewChart(c Curves, r model.ClearingResult) Chart {
	return Chart{Curves: c, ClearingPrice: r.ClearingPrice, ClearedVolume: r.ClearedVolume}
}

// steps emits a leading sentinel at quantity 0, a start and end corner for
// every block, and a trailing sentinel at the total quantity whose price
// comes from tail.
func steps(side []model.Participant, tail func(last model.Participant) decimal.Decimal) ([]model.CurvePoint, decimal.Decimal) {
	points := make([]model.CurvePoint, 0, 2*len(side)+2)
	acc := decimal.Zero
	if len(side) == 0 {
		return points, acc
	}

	points = append(points, model.CurvePoint{Quantity: decimal.Zero, Price: side[0].Price, Label: LabelStart})
	for _, p := range side {
		points = append(points, model.CurvePoint{Quantity: acc, Price: p.Price, Label: p.Name})
		acc = acc.Add(p.Capacity)
		points = append(points, model.CurvePoint{Quantity: acc, Price: p.Price, Label: p.Name})
	}
	points = append(points, model.CurvePoint{Quantity: acc, Price: tail(side[len(side)-1]), Label: LabelEnd})

	return points, acc
}
