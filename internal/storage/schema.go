package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/colstore/internal/naming"
	"github.com/dshills/colstore/pkg/types"
)

// columnType maps a logical field type to its SQLite storage type
func columnType(t types.FieldType) string {
	switch t {
	case types.FieldNumber:
		return "REAL"
	case types.FieldBoolean:
		return "INTEGER"
	default:
		// uuid, string, date (ISO-8601), json all store as text
		return "TEXT"
	}
}

// EnsureSchema verifies the physical table and indexes for a collection.
// Idempotent: after the first successful call the collection is recorded in
// an in-memory verified set and subsequent calls short-circuit without
// touching the store. A nil schema for an unverified collection is a
// configuration error.
//
// Migration policy is append-only: new schema fields become new columns,
// but columns are never dropped or retyped.
func (a *Adapter) EnsureSchema(ctx context.Context, collection string, schema *types.CollectionSchema) error {
	a.mu.RLock()
	_, verified := a.schemas[collection]
	a.mu.RUnlock()
	if verified {
		return nil
	}

	if schema == nil {
		return fmt.Errorf("%w: %q", ErrNoSchema, collection)
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	table := tableFor(collection)
	exists, err := a.tableExists(ctx, table)
	if err != nil {
		return fmt.Errorf("check table %s: %w", table, err)
	}

	if !exists {
		if err := a.createTable(ctx, table, schema); err != nil {
			return err
		}
		a.log.Info("created collection table", zap.String("collection", collection), zap.String("table", table))
	} else {
		if err := a.migrateColumns(ctx, table, collection, schema); err != nil {
			return err
		}
	}

	// Index creation is attempted on both branches: indexes may have been
	// added to the schema after the table was first created.
	if err := a.createIndexes(ctx, table, schema); err != nil {
		return err
	}

	a.mu.Lock()
	a.schemas[collection] = schema
	a.mu.Unlock()
	return nil
}

func (a *Adapter) tableExists(ctx context.Context, table string) (bool, error) {
	rows, err := a.exec.RunSQL(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", []any{table})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (a *Adapter) createTable(ctx context.Context, table string, schema *types.CollectionSchema) error {
	cols := []string{
		"id TEXT PRIMARY KEY",
		"created_at TEXT NOT NULL",
		"updated_at TEXT NOT NULL",
		"version INTEGER NOT NULL DEFAULT 1",
	}
	for _, f := range schema.Fields {
		cols = append(cols, columnDef(&f))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t"))
	if _, err := a.exec.RunStatement(ctx, stmt, nil); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func columnDef(f *types.SchemaField) string {
	def := naming.ToColumn(f.Name) + " " + columnType(f.Type)
	if !f.Nullable {
		def += " NOT NULL"
	}
	if f.Unique {
		def += " UNIQUE"
	}
	return def
}

// migrateColumns adds columns for schema fields missing from an existing
// table. Added columns are always nullable: SQLite cannot add a NOT NULL
// column without a default, and existing rows have no value for it.
func (a *Adapter) migrateColumns(ctx context.Context, table, collection string, schema *types.CollectionSchema) error {
	rows, err := a.exec.RunSQL(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table), nil)
	if err != nil {
		return fmt.Errorf("introspect table %s: %w", table, err)
	}
	existing := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if name, ok := textValue(row["name"]); ok {
			existing[name] = struct{}{}
		}
	}

	for _, f := range schema.Fields {
		col := naming.ToColumn(f.Name)
		if _, ok := existing[col]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col, columnType(f.Type))
		if _, err := a.exec.RunStatement(ctx, stmt, nil); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, col, err)
		}
		a.log.Info("migrated new column",
			zap.String("collection", collection),
			zap.String("column", col))
	}
	return nil
}

func (a *Adapter) createIndexes(ctx context.Context, table string, schema *types.CollectionSchema) error {
	for _, f := range schema.Fields {
		if !f.Indexed {
			continue
		}
		col := naming.ToColumn(f.Name)
		unique := ""
		if f.Unique {
			unique = "UNIQUE "
		}
		stmt := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", unique, table, col, table, col)
		if _, err := a.exec.RunStatement(ctx, stmt, nil); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", table, col, err)
		}
	}

	for _, idx := range schema.Indexes {
		cols := make([]string, len(idx.Fields))
		for i, fn := range idx.Fields {
			cols[i] = naming.ToColumn(fn)
		}
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmt := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS idx_%s_%s ON %s(%s)",
			unique, table, idx.Name, table, strings.Join(cols, ", "))
		if _, err := a.exec.RunStatement(ctx, stmt, nil); err != nil {
			return fmt.Errorf("create index %s on %s: %w", idx.Name, table, err)
		}
	}
	return nil
}

// ListCollections returns the collections visible in the physical catalog.
// Engine-owned tables are hidden: the metadata table, and vector child
// tables whose base table exists. A user collection whose own table name
// happens to end in "_vectors" stays visible.
func (a *Adapter) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := a.exec.RunSQL(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table'
		   AND name NOT LIKE 'sqlite_%'
		   AND name != ?
		 ORDER BY name`, []any{metaTable})
	if err != nil {
		return nil, err
	}
	tables := make(map[string]bool, len(rows))
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := textValue(row["name"]); ok {
			tables[name] = true
			names = append(names, name)
		}
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if base, ok := strings.CutSuffix(name, "_vectors"); ok && tables[base] {
			continue
		}
		out = append(out, naming.ToField(name))
	}
	return out, nil
}

// CollectionStats reports the physical footprint of one collection
func (a *Adapter) CollectionStats(ctx context.Context, collection string) (*types.CollectionStats, error) {
	_, table, err := a.schemaFor(collection)
	if err != nil {
		return nil, err
	}

	rows, err := a.exec.RunSQL(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", table), nil)
	if err != nil {
		return nil, err
	}
	stats := &types.CollectionStats{Collection: collection, TableName: table}
	if len(rows) > 0 {
		if n, ok := rows[0]["n"].(int64); ok {
			stats.RecordCount = n
		}
	}

	idxRows, err := a.exec.RunSQL(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%' ORDER BY name",
		[]any{table})
	if err != nil {
		return nil, err
	}
	for _, row := range idxRows {
		if name, ok := textValue(row["name"]); ok {
			stats.Indexes = append(stats.Indexes, name)
		}
	}
	return stats, nil
}
