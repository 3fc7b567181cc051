package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridmarket/spot-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache of scenario snapshots. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary.
type CachedStore struct {
	primary Store
	rdb     redis.Cmdable
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	if err := s.primary.CreateScenario(ctx, sc); err != nil {
		return err
	}
	s.cacheScenario(ctx, sc)
	return nil
}

func (s *CachedStore) AddParticipant(ctx context.Context, scenarioID string, p model.Participant) (int64, error) {
	return s.invalidateAfter(ctx, scenarioID, func() (int64, error) {
		return s.primary.AddParticipant(ctx, scenarioID, p)
	})
}

func (s *CachedStore) UpdateParticipant(ctx context.Context, scenarioID string, p model.Participant) (int64, error) {
	return s.invalidateAfter(ctx, scenarioID, func() (int64, error) {
		return s.primary.UpdateParticipant(ctx, scenarioID, p)
	})
}

func (s *CachedStore) RemoveParticipant(ctx context.Context, scenarioID, participantID string) (int64, error) {
	return s.invalidateAfter(ctx, scenarioID, func() (int64, error) {
		return s.primary.RemoveParticipant(ctx, scenarioID, participantID)
	})
}

func (s *CachedStore) ReplaceParticipants(ctx context.Context, scenarioID string, ps []model.Participant) (int64, error) {
	return s.invalidateAfter(ctx, scenarioID, func() (int64, error) {
		return s.primary.ReplaceParticipants(ctx, scenarioID, ps)
	})
}

func (s *CachedStore) invalidateAfter(ctx context.Context, scenarioID string, write func() (int64, error)) (int64, error) {
	version, err := write()
	if err != nil {
		return 0, err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, scenarioKey(scenarioID))
	return version, nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, scenarioKey(id)).Bytes()
	if err == nil {
		var sc model.Scenario
		if json.Unmarshal(data, &sc) == nil {
			return &sc, nil
		}
	}

	// Cache miss: read from primary.
	sc, err := s.primary.GetScenario(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheScenario(ctx, sc)
	return sc, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	return s.primary.ListScenarios(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheScenario(ctx context.Context, sc *model.Scenario) {
	if data, err := json.Marshal(sc); err == nil {
		s.rdb.Set(ctx, scenarioKey(sc.ID), data, s.ttl)
	}
}

func scenarioKey(id string) string { return fmt.Sprintf("scenario:%s", id) }
