package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/colstore/internal/sqlexec"
	"github.com/dshills/colstore/pkg/types"
)

func newTestExec(t *testing.T) *sqlexec.SQLiteExecutor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	exec, err := sqlexec.OpenSQLite(sqlexec.DefaultSQLiteOptions(path))
	require.NoError(t, err)
	return exec
}

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	return newTestAdapterWith(t, AdapterOptions{})
}

func newTestAdapterWith(t *testing.T, opts AdapterOptions) *Adapter {
	t.Helper()
	exec := newTestExec(t)
	a, err := NewAdapter(context.Background(), exec, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func userSchema() *types.CollectionSchema {
	return &types.CollectionSchema{
		Collection: "users",
		Fields: []types.SchemaField{
			{Name: "name", Type: types.FieldString},
			{Name: "email", Type: types.FieldString, Nullable: true, Unique: true, Indexed: true},
			{Name: "age", Type: types.FieldNumber, Nullable: true},
			{Name: "active", Type: types.FieldBoolean, Nullable: true},
			{Name: "profile", Type: types.FieldJSON, Nullable: true},
			{Name: "joinedAt", Type: types.FieldDate, Nullable: true},
		},
	}
}

func TestNewAdapterStampsEngineVersion(t *testing.T) {
	a := newTestAdapter(t)

	got, err := a.getMeta(context.Background(), "engine_version")
	require.NoError(t, err)
	assert.Equal(t, EngineVersion, got)
}

func TestNewAdapterRefusesNewerMajor(t *testing.T) {
	ctx := context.Background()
	exec := newTestExec(t)
	defer exec.Close()

	a, err := NewAdapter(ctx, exec, AdapterOptions{})
	require.NoError(t, err)
	require.NoError(t, a.setMeta(ctx, "engine_version", "99.0.0"))

	_, err = NewAdapter(ctx, exec, AdapterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer engine")
}

func TestNewAdapterUpgradesOlderVersion(t *testing.T) {
	ctx := context.Background()
	exec := newTestExec(t)
	defer exec.Close()

	a, err := NewAdapter(ctx, exec, AdapterOptions{})
	require.NoError(t, err)
	require.NoError(t, a.setMeta(ctx, "engine_version", "0.1.0"))

	b, err := NewAdapter(ctx, exec, AdapterOptions{})
	require.NoError(t, err)
	got, err := b.getMeta(ctx, "engine_version")
	require.NoError(t, err)
	assert.Equal(t, EngineVersion, got)
}

// TestUserLifecycle walks one record through the full CRUD surface.
func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	alice, err := a.Create(ctx, "users", map[string]any{"name": "alice", "age": 30, "active": true})
	require.NoError(t, err)
	_, err = a.Create(ctx, "users", map[string]any{"name": "bob", "age": 15, "active": false})
	require.NoError(t, err)

	adults, err := a.Query(ctx, types.Query{
		Collection: "users",
		Filter:     types.Filter{"age": {types.Gte(18)}},
	})
	require.NoError(t, err)
	require.Len(t, adults, 1)
	assert.Equal(t, "alice", adults[0].Data["name"])
	assert.Equal(t, alice.ID, adults[0].Data["id"], "id is mirrored into Data")

	updated, err := a.Update(ctx, "users", alice.ID, map[string]any{"age": 31, "version": 2})
	require.NoError(t, err)
	assert.Equal(t, float64(31), updated.Data["age"])
	assert.Equal(t, int64(2), updated.Metadata.Version)
	assert.WithinDuration(t, alice.Metadata.CreatedAt, updated.Metadata.CreatedAt, time.Second,
		"update must preserve createdAt")

	got, err := a.Read(ctx, "users", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(31), got.Data["age"])

	removed, err := a.Delete(ctx, "users", alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = a.Read(ctx, "users", alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err = a.Delete(ctx, "users", alice.ID)
	require.NoError(t, err)
	assert.False(t, removed, "second delete is a no-op, not an error")
}
