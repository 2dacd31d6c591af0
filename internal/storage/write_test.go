package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/colstore/pkg/types"
)

func TestCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	joined := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	rec, err := a.Create(ctx, "users", map[string]any{
		"name":     "alice",
		"email":    "alice@example.com",
		"age":      30,
		"active":   true,
		"profile":  map[string]any{"city": "Lisbon", "tags": []any{"a", "b"}},
		"joinedAt": joined,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Metadata.Version)

	got, err := a.Read(ctx, "users", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.Data["id"])
	assert.Equal(t, "alice", got.Data["name"])
	assert.Equal(t, float64(30), got.Data["age"], "numbers decode as float64")
	assert.Equal(t, true, got.Data["active"])
	assert.Equal(t, map[string]any{"city": "Lisbon", "tags": []any{"a", "b"}}, got.Data["profile"])
	assert.Equal(t, joined, got.Data["joinedAt"].(time.Time))
}

func TestCreateWithSuppliedID(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	rec, err := a.Create(ctx, "users", map[string]any{"id": "fixed-id", "name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", rec.ID)

	_, err = a.Create(ctx, "users", map[string]any{"id": "fixed-id", "name": "dup"})
	assert.Error(t, err, "duplicate primary key must fail")
}

func TestUpdateMissingRecord(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	_, err := a.Update(ctx, "users", "no-such-id", map[string]any{"name": "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	rec, err := a.Create(ctx, "users", map[string]any{"name": "alice", "age": 30})
	require.NoError(t, err)

	updated, err := a.Update(ctx, "users", rec.ID, map[string]any{"age": 31, "version": 2})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Data["name"], "untouched field survives")
	assert.Equal(t, float64(31), updated.Data["age"])
	assert.Equal(t, int64(2), updated.Metadata.Version)
	assert.False(t, updated.Metadata.UpdatedAt.Before(updated.Metadata.CreatedAt))
}

func TestBatchCreate(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	recs, err := a.BatchCreate(ctx, "users", []map[string]any{
		{"name": "a"}, {"name": "b"}, {"name": "c"},
	})
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	n, err := a.Count(ctx, types.Query{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBatchUpdateFailFast(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	rec, err := a.Create(ctx, "users", map[string]any{"name": "a"})
	require.NoError(t, err)

	updated, err := a.BatchUpdate(ctx, "users", []BatchUpdateItem{
		{ID: rec.ID, Data: map[string]any{"name": "a2"}},
		{ID: "missing", Data: map[string]any{"name": "x"}},
		{ID: rec.ID, Data: map[string]any{"name": "a3"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "item 1", "error names the failing item")
	assert.Len(t, updated, 1, "work before the failure is reported")

	got, err := a.Read(ctx, "users", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", got.Data["name"], "item after the failure never ran")
}

func TestBatchDelete(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	r1, err := a.Create(ctx, "users", map[string]any{"name": "a"})
	require.NoError(t, err)
	r2, err := a.Create(ctx, "users", map[string]any{"name": "b"})
	require.NoError(t, err)

	removed, err := a.BatchDelete(ctx, "users", []string{r1.ID, "missing", r2.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))
	require.NoError(t, a.EnsureSchema(ctx, "events", &types.CollectionSchema{
		Collection: "events",
		Fields:     []types.SchemaField{{Name: "kind", Type: types.FieldString}},
	}))

	for i := 0; i < 3; i++ {
		_, err := a.Create(ctx, "users", map[string]any{"name": "u"})
		require.NoError(t, err)
		_, err = a.Create(ctx, "events", map[string]any{"kind": "e"})
		require.NoError(t, err)
	}

	n, err := a.Clear(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	total, err := a.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "users already empty, events cleared")
}

func TestTruncateRecreatesStorage(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	rec, err := a.Create(ctx, "users", map[string]any{"name": "a"})
	require.NoError(t, err)
	require.NoError(t, a.IndexVector(ctx, "users", rec.ID, []float32{1, 0}, "test"))

	require.NoError(t, a.Truncate(ctx, "users"))

	n, err := a.Count(ctx, types.Query{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// The collection is immediately usable again
	_, err = a.Create(ctx, "users", map[string]any{"name": "b"})
	require.NoError(t, err)
}
