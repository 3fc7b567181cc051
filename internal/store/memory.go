package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gridmarket/spot-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]*model.Scenario
	now       func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string]*model.Scenario),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// clone deep-copies a scenario so callers never share the participant slice.
func clone(s *model.Scenario) model.Scenario {
	c := *s
	c.Participants = append([]model.Participant(nil), s.Participants...)
	return c
}

func (s *MemoryStore) CreateScenario(_ context.Context, sc *model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenarios[sc.ID]; ok {
		return fmt.Errorf("scenario %s already exists", sc.ID)
	}
	seen := make(map[string]bool, len(sc.Participants))
	for _, p := range sc.Participants {
		if seen[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p.ID)
		}
		seen[p.ID] = true
	}

	// Store a copy to avoid external mutation.
	c := clone(sc)
	s.scenarios[sc.ID] = &c
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id string) (*model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, id)
	}
	c := clone(sc)
	return &c, nil
}

func (s *MemoryStore) ListScenarios(_ context.Context) ([]model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenarios := make([]model.Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		scenarios = append(scenarios, clone(sc))
	}
	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].CreatedAt.After(scenarios[j].CreatedAt)
	})
	return scenarios, nil
}

// mutate runs fn on the stored scenario under the write lock and bumps
// its version when fn succeeds.
func (s *MemoryStore) mutate(id string, fn func(sc *model.Scenario) error) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrScenarioNotFound, id)
	}
	if err := fn(sc); err != nil {
		return 0, err
	}
	sc.Version++
	sc.UpdatedAt = s.now()
	return sc.Version, nil
}

func indexOf(ps []model.Participant, id string) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) AddParticipant(_ context.Context, scenarioID string, p model.Participant) (int64, error) {
	return s.mutate(scenarioID, func(sc *model.Scenario) error {
		if indexOf(sc.Participants, p.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p.ID)
		}
		sc.Participants = append(sc.Participants, p)
		return nil
	})
}

func (s *MemoryStore) UpdateParticipant(_ context.Context, scenarioID string, p model.Participant) (int64, error) {
	return s.mutate(scenarioID, func(sc *model.Scenario) error {
		i := indexOf(sc.Participants, p.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrParticipantNotFound, p.ID)
		}
		sc.Participants[i] = p
		return nil
	})
}

func (s *MemoryStore) RemoveParticipant(_ context.Context, scenarioID, participantID string) (int64, error) {
	return s.mutate(scenarioID, func(sc *model.Scenario) error {
		i := indexOf(sc.Participants, participantID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrParticipantNotFound, participantID)
		}
		sc.Participants = append(sc.Participants[:i:i], sc.Participants[i+1:]...)
		return nil
	})
}

func (s *MemoryStore) ReplaceParticipants(_ context.Context, scenarioID string, ps []model.Participant) (int64, error) {
	return s.mutate(scenarioID, func(sc *model.Scenario) error {
		sc.Participants = append([]model.Participant(nil), ps...)
		return nil
	})
}
