package scenario

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/clearing"
	"github.com/gridmarket/spot-engine/internal/validate"
)

func TestDefaults_PassValidation(t *testing.T) {
	limits := validate.NewLimits(0, decimal.Zero, decimal.Zero, decimal.Zero)
	if err := limits.CheckAll(Defaults()); err != nil {
		t.Fatalf("default scenario should be valid: %v", err)
	}
}

func TestDefaults_FreshCopy(t *testing.T) {
	a := Defaults()
	a[0].Name = "mutated"
	if Defaults()[0].Name == "mutated" {
		t.Error("Defaults must return a new slice on every call")
	}
}

func TestDefaults_Clear(t *testing.T) {
	e, _ := clearing.NewEngine(clearing.DefaultEpsilon)
	r := e.Compute(Defaults())

	if !r.ClearingPrice.Equal(decimal.NewFromInt(35)) {
		t.Errorf("expected clearing price 35, got %s", r.ClearingPrice)
	}
	if !r.ClearedVolume.Equal(decimal.NewFromInt(650)) {
		t.Errorf("expected cleared volume 650, got %s", r.ClearedVolume)
	}
}
