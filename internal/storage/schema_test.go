package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/colstore/internal/sqlexec"
	"github.com/dshills/colstore/pkg/types"
)

func TestEnsureSchemaCreatesTableAndIndexes(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	exists, err := a.tableExists(ctx, "users")
	require.NoError(t, err)
	assert.True(t, exists)

	stats, err := a.CollectionStats(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "users", stats.TableName)
	assert.Equal(t, int64(0), stats.RecordCount)
	assert.Contains(t, stats.Indexes, "idx_users_email")
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))
	// Verified collections short-circuit, so nil is accepted afterwards
	require.NoError(t, a.EnsureSchema(ctx, "users", nil))
}

func TestEnsureSchemaNilSchema(t *testing.T) {
	a := newTestAdapter(t)
	err := a.EnsureSchema(context.Background(), "ghosts", nil)
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestEnsureSchemaRejectsReservedField(t *testing.T) {
	a := newTestAdapter(t)
	schema := &types.CollectionSchema{
		Collection: "bad",
		Fields:     []types.SchemaField{{Name: "createdAt", Type: types.FieldDate}},
	}
	err := a.EnsureSchema(context.Background(), "bad", schema)
	assert.ErrorIs(t, err, types.ErrReservedFieldName)
}

func TestEnsureSchemaCompositeIndex(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	schema := &types.CollectionSchema{
		Collection: "events",
		Fields: []types.SchemaField{
			{Name: "kind", Type: types.FieldString},
			{Name: "happenedAt", Type: types.FieldDate},
		},
		Indexes: []types.CompositeIndex{
			{Name: "kind_time", Fields: []string{"kind", "happenedAt"}},
		},
	}
	require.NoError(t, a.EnsureSchema(ctx, "events", schema))

	stats, err := a.CollectionStats(ctx, "events")
	require.NoError(t, err)
	assert.Contains(t, stats.Indexes, "idx_events_kind_time")
}

// A schema with new fields against an existing table adds columns without
// touching existing rows.
func TestSchemaMigrationAddsColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "migrate.db")

	v1 := &types.CollectionSchema{
		Collection: "users",
		Fields:     []types.SchemaField{{Name: "name", Type: types.FieldString}},
	}
	exec1, err := sqlexec.OpenSQLite(sqlexec.DefaultSQLiteOptions(path))
	require.NoError(t, err)
	a1, err := NewAdapter(ctx, exec1, AdapterOptions{})
	require.NoError(t, err)
	require.NoError(t, a1.EnsureSchema(ctx, "users", v1))
	rec, err := a1.Create(ctx, "users", map[string]any{"name": "alice"})
	require.NoError(t, err)
	require.NoError(t, a1.Close())

	v2 := &types.CollectionSchema{
		Collection: "users",
		Fields: []types.SchemaField{
			{Name: "name", Type: types.FieldString},
			{Name: "nickname", Type: types.FieldString, Nullable: true},
		},
	}
	exec2, err := sqlexec.OpenSQLite(sqlexec.DefaultSQLiteOptions(path))
	require.NoError(t, err)
	a2, err := NewAdapter(ctx, exec2, AdapterOptions{})
	require.NoError(t, err)
	defer a2.Close()
	require.NoError(t, a2.EnsureSchema(ctx, "users", v2))

	got, err := a2.Read(ctx, "users", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Data["name"])
	assert.Nil(t, got.Data["nickname"], "pre-migration rows read NULL for the new column")

	rec2, err := a2.Create(ctx, "users", map[string]any{"name": "bob", "nickname": "bobby"})
	require.NoError(t, err)
	got2, err := a2.Read(ctx, "users", rec2.ID)
	require.NoError(t, err)
	assert.Equal(t, "bobby", got2.Data["nickname"])
}

func TestListCollectionsExcludesInternal(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))
	require.NoError(t, a.EnsureVectorStorage(ctx, "users"))

	names, err := a.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names, "metadata and vector tables stay hidden")
}

func TestListCollectionsKeepsVectorsSuffixedCollection(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	// A user collection whose table name ends in "_vectors" is not the
	// engine's child table and must stay visible.
	embSchema := &types.CollectionSchema{
		Collection: "embeddingVectors",
		Fields:     []types.SchemaField{{Name: "label", Type: types.FieldString}},
	}
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))
	require.NoError(t, a.EnsureSchema(ctx, "embeddingVectors", embSchema))
	require.NoError(t, a.EnsureVectorStorage(ctx, "users"))

	names, err := a.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"embeddingVectors", "users"}, names)
}
