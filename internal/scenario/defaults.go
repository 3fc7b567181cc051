// Package scenario provides the reference participant set a new scenario
// starts from: a small grid with renewable, baseload and peaking supply
// and a mix of inelastic and price-responsive demand.
package scenario

import (
	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/model"
)

// DefaultName is the name given to the seeded scenario.
const DefaultName = "Reference grid"

func unit(id, name string, role model.Role, fuel model.Fuel, capacity, price int64) model.Participant {
	return model.Participant{
		ID:       id,
		Name:     name,
		Role:     role,
		Fuel:     fuel,
		Capacity: decimal.NewFromInt(capacity),
		Price:    decimal.NewFromInt(price),
	}
}

// Defaults returns a fresh copy of the reference participant set.
func Defaults() []model.Participant {
	return []model.Participant{
		unit("g1", "Wind Farm North", model.RoleGenerator, model.FuelWind, 150, 0),
		unit("g2", "Nuclear Base", model.RoleGenerator, model.FuelNuclear, 300, 15),
		unit("g3", "Coal Plant A", model.RoleGenerator, model.FuelCoal, 200, 35),
		unit("g4", "Gas Peaker 1", model.RoleGenerator, model.FuelGas, 100, 65),
		unit("g5", "Gas Peaker 2", model.RoleGenerator, model.FuelGas, 50, 80),

		// A very high bid marks must-serve demand.
		unit("l1", "City Base Load", model.RoleLoad, "", 400, 2000),
		unit("l2", "Industrial Factory", model.RoleLoad, "", 150, 70),
		unit("l3", "Data Center", model.RoleLoad, "", 100, 100),
		unit("l4", "Smart Charging", model.RoleLoad, "", 80, 30),
	}
}
