package model

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"GENERATOR", RoleGenerator, false},
		{"generator", RoleGenerator, false},
		{" gen ", RoleGenerator, false},
		{"LOAD", RoleLoad, false},
		{"load", RoleLoad, false},
		{"", "", true},
		{"STORAGE", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRole) {
					t.Fatalf("expected ErrInvalidRole, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFuel(t *testing.T) {
	f, err := ParseFuel("wind")
	if err != nil || f != FuelWind {
		t.Fatalf("expected WIND, got %q (%v)", f, err)
	}

	f, err = ParseFuel("")
	if err != nil || f != "" {
		t.Fatalf("empty fuel should parse to empty, got %q (%v)", f, err)
	}

	if _, err := ParseFuel("PLUTONIUM"); !errors.Is(err, ErrInvalidFuel) {
		t.Errorf("expected ErrInvalidFuel, got %v", err)
	}
}

func TestScenarioParticipantLookup(t *testing.T) {
	s := &Scenario{Participants: []Participant{{ID: "g1"}, {ID: "l1"}}}
	if _, ok := s.Participant("l1"); !ok {
		t.Error("expected to find l1")
	}
	if _, ok := s.Participant("zz"); ok {
		t.Error("did not expect to find zz")
	}
}
