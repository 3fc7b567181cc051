package clearing

import (
	"testing"

	"github.com/gridmarket/spot-engine/internal/model"
)

func TestSettlementTable(t *testing.T) {
	e := newTestEngine(t)
	participants := []model.Participant{
		load("C", 150, 25),
		gen("B", 100, 20),
		gen("A", 100, 10),
		gen("Z", 100, 50),
	}
	r := e.Compute(participants)
	rows := SettlementTable(participants, r)

	want := []struct {
		id       string
		status   Status
		cashflow float64
	}{
		{"A", StatusCleared, 2000},
		{"B", StatusPartial, 1000},
		{"Z", StatusRejected, 0},
		{"C", StatusCleared, -3000},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, w := range want {
		row := rows[i]
		if row.Participant.ID != w.id {
			t.Fatalf("row %d: expected %s, got %s", i, w.id, row.Participant.ID)
		}
		if row.Status != w.status {
			t.Errorf("%s: expected status %s, got %s", w.id, w.status, row.Status)
		}
		expectEq(t, w.id+" cashflow", row.Cashflow, w.cashflow)
	}
}

func TestSettlementTable_MissingOrder(t *testing.T) {
	rows := SettlementTable([]model.Participant{gen("G", 10, 1)}, model.ClearingResult{})
	if len(rows) != 1 || rows[0].Status != StatusRejected {
		t.Fatalf("expected one rejected row, got %+v", rows)
	}
}
