package clearing

import (
	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
)

// Status is the settlement state of a single participant.
type Status string

const (
	StatusCleared  Status = "CLEARED"  // full capacity traded
	StatusPartial  Status = "PARTIAL"  // some capacity traded
	StatusRejected Status = "REJECTED" // nothing traded
)

// Settlement is one row of the settlement table.
type Settlement struct {
	Participant model.Participant  `json:"participant"`
	Order       model.ClearedOrder `json:"order"`
	Status      Status             `json:"status"`
	// Cashflow is signed from the participant's point of view:
	// +revenue for generators, −cost for loads.
	Cashflow decimal.Decimal `json:"cashflow"`
}

// Settle classifies one participant's cleared order.
func Settle(p model.Participant, o model.ClearedOrder) Settlement {
	s := Settlement{Participant: p, Order: o, Status: StatusRejected}

	switch {
	case !o.ClearedQuantity.IsPositive():
	case o.ClearedQuantity.LessThan(p.Capacity):
		s.Status = StatusPartial
	default:
		s.Status = StatusCleared
	}

	if p.IsGenerator() {
		s.Cashflow = o.Revenue
	} else {
		s.Cashflow = o.Cost.Neg()
	}
	return s
}

// SettlementTable joins participants with their cleared orders and returns
// the rows in display order (generators, then loads, each in merit order).
// Participants missing from result get an empty order.
func SettlementTable(participants []model.Participant, result model.ClearingResult) []Settlement {
	byID := make(map[string]model.ClearedOrder, len(result.ClearedOrders))
	for _, o := range result.ClearedOrders {
		byID[o.ParticipantID] = o
	}

	sorted := meritorder.SortForDisplay(participants)
	rows := make([]Settlement, 0, len(sorted))
	for _, p := range sorted {
		o, ok := byID[p.ID]
		if !ok {
			o = model.ClearedOrder{
				ParticipantID:   p.ID,
				ClearedQuantity: decimal.Zero,
				Revenue:         decimal.Zero,
				Cost:            decimal.Zero,
				Surplus:         decimal.Zero,
			}
		}
		rows = append(rows, Settle(p, o))
	}
	return rows
}
