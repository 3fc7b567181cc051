// Package model defines the core domain types shared across the spot engine.
// All quantities, prices and cashflows use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role says which side of the market a participant trades on.
type Role string

const (
	RoleGenerator Role = "GENERATOR" // sells energy (ask)
	RoleLoad      Role = "LOAD"      // buys energy (bid)
)

// Fuel is the cosmetic fuel category of a generator.
type Fuel string

const (
	FuelSolar   Fuel = "SOLAR"
	FuelWind    Fuel = "WIND"
	FuelHydro   Fuel = "HYDRO"
	FuelNuclear Fuel = "NUCLEAR"
	FuelCoal    Fuel = "COAL"
	FuelGas     Fuel = "GAS"
	FuelBattery Fuel = "BATTERY"
)

// Participant is one offer (generator) or bid (load) in the auction.
// Capacity is in MW, Price in $/MWh. For loads Price is the willingness
// to pay, for generators the willingness to accept.
type Participant struct {
	ID       string          `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	Role     Role            `json:"role" db:"role"`
	Fuel     Fuel            `json:"fuel,omitempty" db:"fuel"` // generators only
	Capacity decimal.Decimal `json:"capacity" db:"capacity"`
	Price    decimal.Decimal `json:"price" db:"price"`
}

// IsGenerator reports whether p sits on the supply side.
func (p Participant) IsGenerator() bool { return p.Role == RoleGenerator }

// ClearedOrder is the per-participant outcome of a clearing run.
type ClearedOrder struct {
	ParticipantID   string          `json:"participant_id"`
	ClearedQuantity decimal.Decimal `json:"cleared_quantity"`
	Revenue         decimal.Decimal `json:"revenue"` // generators only
	Cost            decimal.Decimal `json:"cost"`    // loads only
	Surplus         decimal.Decimal `json:"surplus"`
	IsMarginal      bool            `json:"is_marginal"` // price-setting generator
}

// ClearingResult is the market equilibrium for one participant snapshot.
type ClearingResult struct {
	ClearingPrice decimal.Decimal `json:"clearing_price"`
	ClearedVolume decimal.Decimal `json:"cleared_volume"`
	MarketSurplus decimal.Decimal `json:"market_surplus"`
	ClearedOrders []ClearedOrder  `json:"cleared_orders"`
}

// Traded reports whether any volume cleared.
func (r ClearingResult) Traded() bool { return r.ClearedVolume.IsPositive() }

// CurvePoint is one corner of a stepped supply or demand curve.
type CurvePoint struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Label    string          `json:"label"`
}

// Scenario is a versioned, externally-owned snapshot of the participant set.
// Version is bumped on every mutation; results are always recomputed from
// the snapshot and never stored.
type Scenario struct {
	ID           string        `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Version      int64         `json:"version" db:"version"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// Participant looks up a participant by id.
func (s *Scenario) Participant(id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}
