package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := domain.NewItem("Milk", "u1", "alice", t0)
	second := domain.NewItem("Eggs", "u2", "bob", t0.Add(time.Second))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, first))

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)

	updated, err := store.Update(ctx, first.ID, "u1", "Oat milk", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", updated.Content)
	assert.Equal(t, t0, updated.CreatedAt)
	assert.Equal(t, t0.Add(time.Minute), updated.UpdatedAt)

	require.NoError(t, store.SoftDelete(ctx, first.ID, "u1", t0.Add(2*time.Minute)))
	items, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ID)
}

func TestItemStore_ConditionalWrites(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()
	now := time.Now()
	item := domain.NewItem("Milk", "u1", "alice", now)
	require.NoError(t, store.Create(ctx, item))

	_, err := store.Update(ctx, item.ID, "u2", "stolen", now)
	assert.ErrorIs(t, err, repository.ErrNotFoundOrForbidden)

	assert.ErrorIs(t, store.SoftDelete(ctx, item.ID, "u2", now), repository.ErrNotFoundOrForbidden)
	assert.ErrorIs(t, store.SoftDelete(ctx, "missing", "u1", now), repository.ErrNotFoundOrForbidden)

	require.NoError(t, store.SoftDelete(ctx, item.ID, "u1", now))
	assert.ErrorIs(t, store.SoftDelete(ctx, item.ID, "u1", now), repository.ErrNotFoundOrForbidden)
	_, err = store.Update(ctx, item.ID, "u1", "back", now)
	assert.ErrorIs(t, err, repository.ErrNotFoundOrForbidden)
}

func TestItemStore_CreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewItemStore()
	item := domain.NewItem("Milk", "u1", "alice", time.Now())

	require.NoError(t, store.Create(ctx, item))
	assert.Error(t, store.Create(ctx, item))
	assert.Error(t, store.Create(ctx, domain.Item{}))
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	now := time.Now()

	old := domain.NewSession("u1", "alice", "old-token", now.Add(-72*time.Hour))
	fresh := domain.NewSession("u2", "bob", "fresh-token", now)
	require.NoError(t, store.Save(ctx, old))
	require.NoError(t, store.Save(ctx, fresh))

	got, err := store.FindByTokenHash(ctx, domain.HashToken("fresh-token"))
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Pseudo)

	removed, err := store.DeleteCreatedBefore(ctx, now.Add(-domain.SessionMaxAge))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.FindByTokenHash(ctx, domain.HashToken("old-token"))
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}
