package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRole = errors.New("model: unsupported participant role")
	ErrInvalidFuel = errors.New("model: unsupported fuel type")
)

var validFuels = map[Fuel]bool{
	FuelSolar:   true,
	FuelWind:    true,
	FuelHydro:   true,
	FuelNuclear: true,
	FuelCoal:    true,
	FuelGas:     true,
	FuelBattery: true,
}

// ParseRole parses a role name, case-insensitively.
// "GEN" and "GENERATOR" both map to RoleGenerator.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GENERATOR", "GEN":
		return RoleGenerator, nil
	case "LOAD":
		return RoleLoad, nil
	}
	return "", fmt.Errorf("%w: %q (expected GENERATOR or LOAD)", ErrInvalidRole, s)
}

// ParseFuel parses a fuel category. An empty string parses to the empty Fuel.
func ParseFuel(s string) (Fuel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	f := Fuel(s)
	if !validFuels[f] {
		return "", fmt.Errorf("%w: %s", ErrInvalidFuel, s)
	}
	return f, nil
}
