// Package store defines the persistence interface for scenario snapshots.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// Only participant snapshots are stored. Clearing results are always
// recomputed from a snapshot and are never persisted.
package store

import (
	"context"
	"errors"

	"github.com/gridmarket/spot-engine/internal/model"
)

var (
	ErrScenarioNotFound     = errors.New("store: scenario not found")
	ErrParticipantNotFound  = errors.New("store: participant not found")
	ErrDuplicateParticipant = errors.New("store: participant id already exists in scenario")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Scenario operations ---

	// CreateScenario persists a new scenario with its initial participants.
	CreateScenario(ctx context.Context, scenario *model.Scenario) error

	// GetScenario retrieves a scenario snapshot by its ID.
	GetScenario(ctx context.Context, id string) (*model.Scenario, error)

	// ListScenarios returns all scenarios, newest first.
	ListScenarios(ctx context.Context) ([]model.Scenario, error)

	// --- Participant mutations ---
	// Each mutation bumps the scenario version and returns the new one.

	// AddParticipant appends a participant to a scenario.
	AddParticipant(ctx context.Context, scenarioID string, p model.Participant) (int64, error)

	// UpdateParticipant replaces the participant with the same ID.
	UpdateParticipant(ctx context.Context, scenarioID string, p model.Participant) (int64, error)

	// RemoveParticipant deletes a participant from a scenario.
	RemoveParticipant(ctx context.Context, scenarioID, participantID string) (int64, error)

	// ReplaceParticipants swaps the whole participant set (reset / clear all).
	ReplaceParticipants(ctx context.Context, scenarioID string, ps []model.Participant) (int64, error)
}
