package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/colstore/internal/embedder"
	"github.com/dshills/colstore/internal/sqlexec"
	"github.com/dshills/colstore/pkg/types"
)

// EngineVersion is stamped into the metadata table at first startup.
// A database stamped with a newer major version refuses to open.
const EngineVersion = "1.0.0"

const metaTable = "colstore_meta"

// AdapterOptions configures a new adapter
type AdapterOptions struct {
	Logger   *zap.Logger
	Embedder embedder.Embedder
}

// Adapter binds the engine's managers to one SQL executor. Each adapter
// instance is intended to be driven by a single logical caller at a time;
// see WithTransaction for the isolation caveats.
type Adapter struct {
	exec sqlexec.Executor
	log  *zap.Logger

	mu      sync.RWMutex
	schemas map[string]*types.CollectionSchema // verified this process lifetime

	txnMu    sync.Mutex
	txnDepth int

	vectors *VectorManager
}

// NewAdapter initializes an adapter over the given executor. Startup
// housekeeping (metadata table, durability probe, engine version check)
// is fatal on failure: there is no partial-success mode for schema setup.
func NewAdapter(ctx context.Context, exec sqlexec.Executor, opts AdapterOptions) (*Adapter, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{
		exec:    exec,
		log:     log,
		schemas: make(map[string]*types.CollectionSchema),
	}
	a.vectors = newVectorManager(a, opts.Embedder)

	if err := a.verifyMetadata(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the underlying executor
func (a *Adapter) Close() error {
	return a.exec.Close()
}

// verifyMetadata creates the metadata table, proves the store can durably
// persist a row via a write-then-read round trip, and reconciles the
// recorded engine version.
func (a *Adapter) verifyMetadata(ctx context.Context) error {
	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ','now'))
	)`, metaTable)
	if _, err := a.exec.RunStatement(ctx, createSQL, nil); err != nil {
		return fmt.Errorf("create metadata table: %w", err)
	}

	probe := uuid.NewString()
	if err := a.setMeta(ctx, "startup_probe", probe); err != nil {
		return fmt.Errorf("%w: probe write: %v", ErrIntegrity, err)
	}
	got, err := a.getMeta(ctx, "startup_probe")
	if err != nil {
		return fmt.Errorf("%w: probe read: %v", ErrIntegrity, err)
	}
	if got != probe {
		return fmt.Errorf("%w: probe round trip mismatch", ErrIntegrity)
	}

	stored, err := a.getMeta(ctx, "engine_version")
	if err != nil {
		return fmt.Errorf("read engine version: %w", err)
	}
	current := semver.MustParse(EngineVersion)
	if stored == "" {
		return a.setMeta(ctx, "engine_version", EngineVersion)
	}
	storedVer, err := semver.NewVersion(stored)
	if err != nil {
		return fmt.Errorf("invalid stored engine version %q: %w", stored, err)
	}
	if storedVer.Major() > current.Major() {
		return fmt.Errorf("database created by newer engine %s, this build is %s", stored, EngineVersion)
	}
	if storedVer.LessThan(current) {
		return a.setMeta(ctx, "engine_version", EngineVersion)
	}
	return nil
}

func (a *Adapter) setMeta(ctx context.Context, key, value string) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at)
		VALUES (?, ?, strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, metaTable)
	_, err := a.exec.RunStatement(ctx, stmt, []any{key, value})
	return err
}

func (a *Adapter) getMeta(ctx context.Context, key string) (string, error) {
	rows, err := a.exec.RunSQL(ctx, fmt.Sprintf("SELECT value FROM %s WHERE key = ?", metaTable), []any{key})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	v, _ := rows[0]["value"].(string)
	return v, nil
}

// schemaFor returns the cached schema and physical table name for a verified
// collection. Missing schemas are a configuration error naming the collection.
func (a *Adapter) schemaFor(collection string) (*types.CollectionSchema, string, error) {
	a.mu.RLock()
	schema, ok := a.schemas[collection]
	a.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %q (call EnsureSchema first)", ErrNoSchema, collection)
	}
	return schema, tableFor(collection), nil
}
