package clearing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/meritorder"
	"github.com/gridmarket/spot-engine/internal/model"
)

func TestAllocate_IndependentOfEngine(t *testing.T) {
	book := meritorder.Build([]model.Participant{
		gen("G1", 60, 10),
		gen("G2", 60, 25),
		load("L1", 50, 90),
		load("L2", 50, 40),
	})

	// Feed a hand-written outcome: allocation must follow it without
	// re-running the sweep.
	orders := Allocate(book, Outcome{Price: d(25), Volume: d(100), MarginalID: "G2"})
	if len(orders) != 4 {
		t.Fatalf("expected 4 orders, got %d", len(orders))
	}

	want := []struct {
		id      string
		qty     float64
		revenue float64
		cost    float64
		surplus float64
		margin  bool
	}{
		{"G1", 60, 1500, 0, 900, false},
		{"G2", 40, 1000, 0, 0, true},
		{"L1", 50, 0, 1250, 3250, false},
		{"L2", 50, 0, 1250, 750, false},
	}
	for i, w := range want {
		o := orders[i]
		if o.ParticipantID != w.id {
			t.Fatalf("order %d: expected %s, got %s", i, w.id, o.ParticipantID)
		}
		expectEq(t, w.id+" qty", o.ClearedQuantity, w.qty)
		expectEq(t, w.id+" revenue", o.Revenue, w.revenue)
		expectEq(t, w.id+" cost", o.Cost, w.cost)
		expectEq(t, w.id+" surplus", o.Surplus, w.surplus)
		if o.IsMarginal != w.margin {
			t.Errorf("%s: expected marginal=%v", w.id, w.margin)
		}
	}
}

func TestAllocate_ZeroOutcome(t *testing.T) {
	book := meritorder.Build([]model.Participant{gen("G", 10, 1), load("L", 10, 5)})
	orders := Allocate(book, Outcome{Price: decimal.Zero, Volume: decimal.Zero})
	for _, o := range orders {
		if !o.ClearedQuantity.IsZero() || o.IsMarginal {
			t.Errorf("%s: expected empty order, got %+v", o.ParticipantID, o)
		}
	}
}

func TestShare(t *testing.T) {
	tests := []struct {
		capacity, volume, served, want float64
	}{
		{100, 150, 0, 100},
		{100, 150, 100, 50},
		{100, 150, 150, 0},
		{100, 0, 0, 0},
	}
	for _, tt := range tests {
		got := share(d(tt.capacity), d(tt.volume), d(tt.served))
		if !got.Equal(d(tt.want)) {
			t.Errorf("share(%v, %v, %v) = %s, want %v", tt.capacity, tt.volume, tt.served, got, tt.want)
		}
	}
}
