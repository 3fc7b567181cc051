// Package validate enforces the input contract of the clearing core.
//
// The clearing engine assumes capacity > 0, price ≥ 0 and unique ids and
// never checks them itself. Every participant entering a scenario passes
// through a Limits check first. On top of the hard contract, Limits can
// cap single-unit size, offer/bid price, participant count and the
// aggregate capacity on one side of the market.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/model"
)

var (
	ErrMissingID           = errors.New("validate: participant id is required")
	ErrMissingName         = errors.New("validate: participant name is required")
	ErrInvalidRole         = errors.New("validate: participant role must be GENERATOR or LOAD")
	ErrNonPositiveCapacity = errors.New("validate: capacity must be positive")
	ErrNegativePrice       = errors.New("validate: price must not be negative")
	ErrFuelOnLoad          = errors.New("validate: fuel type applies to generators only")
	ErrCapacityLimit       = errors.New("validate: capacity exceeds per-unit limit")
	ErrPriceCap            = errors.New("validate: price exceeds price cap")
	ErrDuplicateID         = errors.New("validate: participant id already in use")
	ErrTooManyParticipants = errors.New("validate: participant limit reached")
	ErrSideCapacityLimit   = errors.New("validate: aggregate side capacity limit exceeded")
)

// Limits holds the configurable bounds. A zero value disables that bound.
type Limits struct {
	// MaxParticipants caps the number of participants in one scenario.
	MaxParticipants int

	// MaxCapacity caps the capacity (MW) of a single participant.
	MaxCapacity decimal.Decimal

	// PriceCap caps offers and bids ($/MWh). Leave it high enough for
	// must-serve loads, which are modelled with very large bids.
	PriceCap decimal.Decimal

	// MaxSideCapacity caps the summed capacity of all generators, and
	// separately of all loads, in one scenario.
	MaxSideCapacity decimal.Decimal
}

// NewLimits creates limits; negative values are treated as unlimited.
func NewLimits(maxParticipants int, maxCapacity, priceCap, maxSideCapacity decimal.Decimal) *Limits {
	if maxParticipants < 0 {
		maxParticipants = 0
	}
	return &Limits{
		MaxParticipants: maxParticipants,
		MaxCapacity:     decimal.Max(maxCapacity, decimal.Zero),
		PriceCap:        decimal.Max(priceCap, decimal.Zero),
		MaxSideCapacity: decimal.Max(maxSideCapacity, decimal.Zero),
	}
}

// CheckParticipant validates a participant on its own.
func (l *Limits) CheckParticipant(p model.Participant) error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	if p.Role != model.RoleGenerator && p.Role != model.RoleLoad {
		return fmt.Errorf("%w: %q", ErrInvalidRole, p.Role)
	}
	if !p.Capacity.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveCapacity, p.Capacity)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativePrice, p.Price)
	}
	if p.Role == model.RoleLoad && p.Fuel != "" {
		return ErrFuelOnLoad
	}
	if l.MaxCapacity.IsPositive() && p.Capacity.GreaterThan(l.MaxCapacity) {
		return fmt.Errorf("%w: %s > %s", ErrCapacityLimit, p.Capacity, l.MaxCapacity)
	}
	if l.PriceCap.IsPositive() && p.Price.GreaterThan(l.PriceCap) {
		return fmt.Errorf("%w: %s > %s", ErrPriceCap, p.Price, l.PriceCap)
	}
	return nil
}

// CheckAdd validates p as a new member of existing.
func (l *Limits) CheckAdd(existing []model.Participant, p model.Participant) error {
	if err := l.CheckParticipant(p); err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID == p.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
	}
	if l.MaxParticipants > 0 && len(existing) >= l.MaxParticipants {
		return fmt.Errorf("%w: %d", ErrTooManyParticipants, l.MaxParticipants)
	}
	return l.checkSide(existing, p)
}

// CheckUpdate validates p as a replacement for the member with the same id.
func (l *Limits) CheckUpdate(existing []model.Participant, p model.Participant) error {
	if err := l.CheckParticipant(p); err != nil {
		return err
	}
	others := make([]model.Participant, 0, len(existing))
	for _, e := range existing {
		if e.ID != p.ID {
			others = append(others, e)
		}
	}
	return l.checkSide(others, p)
}

// CheckAll validates a complete snapshot, for example one posted for
// stateless evaluation or used to replace a scenario wholesale.
func (l *Limits) CheckAll(participants []model.Participant) error {
	accepted := make([]model.Participant, 0, len(participants))
	for _, p := range participants {
		if err := l.CheckAdd(accepted, p); err != nil {
			return err
		}
		accepted = append(accepted, p)
	}
	return nil
}

func (l *Limits) checkSide(others []model.Participant, p model.Participant) error {
	if !l.MaxSideCapacity.IsPositive() {
		return nil
	}
	total := p.Capacity
	for _, e := range others {
		if e.Role == p.Role {
			total = total.Add(e.Capacity)
		}
	}
	if total.GreaterThan(l.MaxSideCapacity) {
		return fmt.Errorf("%w: %s total %s > %s", ErrSideCapacityLimit, p.Role, total, l.MaxSideCapacity)
	}
	return nil
}

// Reason returns a short metrics label for a validation error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingID), errors.Is(err, ErrMissingName):
		return "missing_field"
	case errors.Is(err, ErrInvalidRole), errors.Is(err, model.ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, model.ErrInvalidFuel), errors.Is(err, ErrFuelOnLoad):
		return "invalid_fuel"
	case errors.Is(err, ErrNonPositiveCapacity):
		return "non_positive_capacity"
	case errors.Is(err, ErrNegativePrice):
		return "negative_price"
	case errors.Is(err, ErrCapacityLimit), errors.Is(err, ErrSideCapacityLimit):
		return "capacity_limit"
	case errors.Is(err, ErrPriceCap):
		return "price_cap"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrTooManyParticipants):
		return "participant_limit"
	}
	return "other"
}
