package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/colstore/internal/naming"
	"github.com/dshills/colstore/pkg/types"
)

// Create inserts a new record. A caller-supplied id in data is accepted
// as-is; otherwise a fresh UUID is assigned. createdAt/updatedAt are
// stamped now and version starts at 1.
func (a *Adapter) Create(ctx context.Context, collection string, data map[string]any) (*types.Record, error) {
	schema, table, err := a.schemaFor(collection)
	if err != nil {
		return nil, err
	}

	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	cols := []string{"id", "created_at", "updated_at", "version"}
	placeholders := []string{"?", "?", "?", "?"}
	params := []any{id, formatTime(now), formatTime(now), int64(1)}

	recData := map[string]any{"id": id}
	for i := range schema.Fields {
		f := &schema.Fields[i]
		v, present := data[f.Name]
		if !present {
			continue
		}
		encoded, err := encodeValue(f, v)
		if err != nil {
			return nil, err
		}
		cols = append(cols, naming.ToColumn(f.Name))
		placeholders = append(placeholders, "?")
		params = append(params, encoded)
		recData[f.Name] = v
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := a.exec.RunStatement(ctx, stmt, params); err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", collection, id, err)
	}

	return &types.Record{
		ID:         id,
		Collection: collection,
		Data:       recData,
		Metadata:   types.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1},
	}, nil
}

// Update rewrites the given fields of an existing record. updatedAt is
// always bumped; version is taken from data["version"] when supplied,
// defaulting to 1; the engine does not itself enforce compare-and-swap.
// Updating a missing id is an error.
func (a *Adapter) Update(ctx context.Context, collection, id string, data map[string]any) (*types.Record, error) {
	schema, table, err := a.schemaFor(collection)
	if err != nil {
		return nil, err
	}

	version := int64(1)
	switch v := data["version"].(type) {
	case int64:
		version = v
	case int:
		version = int64(v)
	case float64:
		version = int64(v)
	}

	now := time.Now().UTC()
	sets := []string{"updated_at = ?", "version = ?"}
	params := []any{formatTime(now), version}

	for i := range schema.Fields {
		f := &schema.Fields[i]
		v, present := data[f.Name]
		if !present {
			continue
		}
		encoded, err := encodeValue(f, v)
		if err != nil {
			return nil, err
		}
		sets = append(sets, naming.ToColumn(f.Name)+" = ?")
		params = append(params, encoded)
	}
	params = append(params, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	res, err := a.exec.RunStatement(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.Changes == 0 {
		return nil, fmt.Errorf("%w: %s/%s (no rows affected)", ErrNotFound, collection, id)
	}

	// Re-read so the returned record carries the original createdAt
	return a.Read(ctx, collection, id)
}

// Delete removes a record. Deleting a missing id is not an error: the
// boolean reports whether a row was actually removed.
func (a *Adapter) Delete(ctx context.Context, collection, id string) (bool, error) {
	_, table, err := a.schemaFor(collection)
	if err != nil {
		return false, err
	}
	res, err := a.exec.RunStatement(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), []any{id})
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return res.Changes > 0, nil
}

// BatchUpdateItem pairs a record id with the fields to update
type BatchUpdateItem struct {
	ID   string
	Data map[string]any
}

// BatchCreate inserts records sequentially, short-circuiting on the first
// failure. Already-created records stay applied unless the caller wrapped
// the batch in WithTransaction. The returned slice holds what succeeded.
func (a *Adapter) BatchCreate(ctx context.Context, collection string, items []map[string]any) ([]*types.Record, error) {
	created := make([]*types.Record, 0, len(items))
	for i, item := range items {
		rec, err := a.Create(ctx, collection, item)
		if err != nil {
			return created, fmt.Errorf("batch create item %d: %w", i, err)
		}
		created = append(created, rec)
	}
	return created, nil
}

// BatchUpdate applies updates sequentially with fail-fast semantics
func (a *Adapter) BatchUpdate(ctx context.Context, collection string, items []BatchUpdateItem) ([]*types.Record, error) {
	updated := make([]*types.Record, 0, len(items))
	for i, item := range items {
		rec, err := a.Update(ctx, collection, item.ID, item.Data)
		if err != nil {
			return updated, fmt.Errorf("batch update item %d (%s): %w", i, item.ID, err)
		}
		updated = append(updated, rec)
	}
	return updated, nil
}

// BatchDelete deletes ids sequentially and reports how many rows were
// actually removed
func (a *Adapter) BatchDelete(ctx context.Context, collection string, ids []string) (int, error) {
	removed := 0
	for i, id := range ids {
		ok, err := a.Delete(ctx, collection, id)
		if err != nil {
			return removed, fmt.Errorf("batch delete item %d (%s): %w", i, id, err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Clear removes every record in a collection, returning the removed count.
// Dedicated vector rows follow via cascade delete.
func (a *Adapter) Clear(ctx context.Context, collection string) (int64, error) {
	_, table, err := a.schemaFor(collection)
	if err != nil {
		return 0, err
	}
	res, err := a.exec.RunStatement(ctx, fmt.Sprintf("DELETE FROM %s", table), nil)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", collection, err)
	}
	return res.Changes, nil
}

// ClearAll clears every verified collection and returns the total removed
func (a *Adapter) ClearAll(ctx context.Context) (int64, error) {
	a.mu.RLock()
	collections := make([]string, 0, len(a.schemas))
	for c := range a.schemas {
		collections = append(collections, c)
	}
	a.mu.RUnlock()

	var total int64
	for _, c := range collections {
		n, err := a.Clear(ctx, c)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Truncate drops and recreates a collection's physical storage, including
// any dedicated vector table
func (a *Adapter) Truncate(ctx context.Context, collection string) error {
	schema, table, err := a.schemaFor(collection)
	if err != nil {
		return err
	}

	if _, err := a.exec.RunStatement(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", naming.VectorTableName(table)), nil); err != nil {
		return fmt.Errorf("truncate %s: drop vector table: %w", collection, err)
	}
	if _, err := a.exec.RunStatement(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table), nil); err != nil {
		return fmt.Errorf("truncate %s: %w", collection, err)
	}

	a.mu.Lock()
	delete(a.schemas, collection)
	a.mu.Unlock()
	a.vectors.forget(collection)

	return a.EnsureSchema(ctx, collection, schema)
}
