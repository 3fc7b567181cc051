package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridmarket/spot-engine/internal/model"
)

func participant(id string, role model.Role, capacity, price int64) model.Participant {
	return model.Participant{
		ID: id, Name: "unit " + id, Role: role,
		Capacity: decimal.NewFromInt(capacity), Price: decimal.NewFromInt(price),
	}
}

func seedScenario(t *testing.T, st Store, id string, ps ...model.Participant) *model.Scenario {
	t.Helper()
	now := time.Now().UTC()
	sc := &model.Scenario{ID: id, Name: "test " + id, Participants: ps, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateScenario(context.Background(), sc))
	return sc
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	sc := seedScenario(t, ms, "s1", participant("g1", model.RoleGenerator, 100, 10))

	got, err := ms.GetScenario(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "test s1", got.Name)
	require.Len(t, got.Participants, 1)

	// Mutating the caller's copy must not leak into the store.
	sc.Participants[0].Name = "changed"
	got.Participants[0].Name = "changed too"
	again, err := ms.GetScenario(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "unit g1", again.Participants[0].Name)
}

func TestMemoryStore_CreateRejectsDuplicates(t *testing.T) {
	ms := NewMemoryStore()
	seedScenario(t, ms, "s1")

	err := ms.CreateScenario(context.Background(), &model.Scenario{ID: "s1"})
	require.Error(t, err)

	err = ms.CreateScenario(context.Background(), &model.Scenario{ID: "s2", Participants: []model.Participant{
		participant("x", model.RoleGenerator, 1, 1),
		participant("x", model.RoleLoad, 1, 1),
	}})
	require.ErrorIs(t, err, ErrDuplicateParticipant)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	_, err := NewMemoryStore().GetScenario(context.Background(), "nope")
	require.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestMemoryStore_MutationsBumpVersion(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	seedScenario(t, ms, "s1", participant("g1", model.RoleGenerator, 100, 10))

	v, err := ms.AddParticipant(ctx, "s1", participant("l1", model.RoleLoad, 50, 40))
	require.NoError(t, err)
	require.EqualValues(t, 1, v)

	updated := participant("g1", model.RoleGenerator, 120, 12)
	v, err = ms.UpdateParticipant(ctx, "s1", updated)
	require.NoError(t, err)
	require.EqualValues(t, 2, v)

	v, err = ms.RemoveParticipant(ctx, "s1", "l1")
	require.NoError(t, err)
	require.EqualValues(t, 3, v)

	sc, err := ms.GetScenario(ctx, "s1")
	require.NoError(t, err)
	require.EqualValues(t, 3, sc.Version)
	require.Len(t, sc.Participants, 1)
	require.True(t, sc.Participants[0].Capacity.Equal(decimal.NewFromInt(120)))
}

func TestMemoryStore_MutationErrorsKeepVersion(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	seedScenario(t, ms, "s1", participant("g1", model.RoleGenerator, 100, 10))

	_, err := ms.AddParticipant(ctx, "s1", participant("g1", model.RoleLoad, 1, 1))
	require.ErrorIs(t, err, ErrDuplicateParticipant)

	_, err = ms.UpdateParticipant(ctx, "s1", participant("zz", model.RoleLoad, 1, 1))
	require.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = ms.RemoveParticipant(ctx, "s1", "zz")
	require.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = ms.AddParticipant(ctx, "missing", participant("a", model.RoleLoad, 1, 1))
	require.ErrorIs(t, err, ErrScenarioNotFound)

	sc, err := ms.GetScenario(ctx, "s1")
	require.NoError(t, err)
	require.EqualValues(t, 0, sc.Version)
}

func TestMemoryStore_ReplaceParticipants(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	seedScenario(t, ms, "s1", participant("g1", model.RoleGenerator, 100, 10))

	v, err := ms.ReplaceParticipants(ctx, "s1", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)

	sc, err := ms.GetScenario(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, sc.Participants)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	old := &model.Scenario{ID: "old", CreatedAt: time.Now().Add(-time.Hour)}
	recent := &model.Scenario{ID: "new", CreatedAt: time.Now()}
	require.NoError(t, ms.CreateScenario(ctx, old))
	require.NoError(t, ms.CreateScenario(ctx, recent))

	list, err := ms.ListScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].ID)
	require.Equal(t, "old", list[1].ID)
}
