package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/colstore/pkg/types"
)

// vectorStore is the four-primitive contract the vector manager's generic
// algorithms are parameterized over. Two implementations exist: a dedicated
// child table, and an inline embedding column on the base table. A
// collection uses exactly one pattern, never both.
type vectorStore interface {
	pattern() types.VectorStoragePattern
	ensure(ctx context.Context) error
	storeOne(ctx context.Context, v types.StoredVector) error
	fetchAll(ctx context.Context) ([]types.StoredVector, error)
	count(ctx context.Context) (int64, error)
}

// dedicatedStore keeps embeddings in {table}_vectors, one row per record,
// foreign-keyed to the base table with cascade delete.
type dedicatedStore struct {
	a         *Adapter
	baseTable string
	vecTable  string
}

func (s *dedicatedStore) pattern() types.VectorStoragePattern {
	return types.VectorStorageDedicated
}

func (s *dedicatedStore) ensure(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		record_id TEXT PRIMARY KEY REFERENCES %s(id) ON DELETE CASCADE,
		embedding BLOB NOT NULL,
		model TEXT,
		generated_at TEXT NOT NULL
	)`, s.vecTable, s.baseTable)
	if _, err := s.a.exec.RunStatement(ctx, stmt, nil); err != nil {
		return fmt.Errorf("create vector table %s: %w", s.vecTable, err)
	}
	return nil
}

func (s *dedicatedStore) storeOne(ctx context.Context, v types.StoredVector) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (record_id, embedding, model, generated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			embedding = excluded.embedding,
			model = excluded.model,
			generated_at = excluded.generated_at`, s.vecTable)
	_, err := s.a.exec.RunStatement(ctx, stmt,
		[]any{v.RecordID, encodeEmbedding(v.Embedding), v.Model, formatTime(v.GeneratedAt)})
	if err != nil {
		return fmt.Errorf("store vector for %s: %w", v.RecordID, err)
	}
	return nil
}

func (s *dedicatedStore) fetchAll(ctx context.Context) ([]types.StoredVector, error) {
	rows, err := s.a.exec.RunSQL(ctx,
		fmt.Sprintf("SELECT record_id, embedding, model, generated_at FROM %s", s.vecTable), nil)
	if err != nil {
		return nil, err
	}
	out := make([]types.StoredVector, 0, len(rows))
	for _, row := range rows {
		v, err := decodeVectorRow(row, "record_id")
		if err != nil {
			return nil, err
		}
		if model, ok := textValue(row["model"]); ok {
			v.Model = model
		}
		if gen, ok := textValue(row["generated_at"]); ok {
			if t, err := parseTime(gen); err == nil {
				v.GeneratedAt = t
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *dedicatedStore) count(ctx context.Context) (int64, error) {
	rows, err := s.a.exec.RunSQL(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", s.vecTable), nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0]["n"].(int64)
	return n, nil
}

// inlineStore uses an embedding column already declared on the base table.
// The inline pattern carries no model or generation metadata.
type inlineStore struct {
	a         *Adapter
	baseTable string
}

func (s *inlineStore) pattern() types.VectorStoragePattern {
	return types.VectorStorageInline
}

func (s *inlineStore) ensure(ctx context.Context) error {
	// The column exists by construction: the probe only selects this
	// pattern when the schema declares an embedding field.
	return nil
}

func (s *inlineStore) storeOne(ctx context.Context, v types.StoredVector) error {
	res, err := s.a.exec.RunStatement(ctx,
		fmt.Sprintf("UPDATE %s SET embedding = ? WHERE id = ?", s.baseTable),
		[]any{encodeEmbedding(v.Embedding), v.RecordID})
	if err != nil {
		return fmt.Errorf("store inline vector for %s: %w", v.RecordID, err)
	}
	if res.Changes == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, s.baseTable, v.RecordID)
	}
	return nil
}

func (s *inlineStore) fetchAll(ctx context.Context) ([]types.StoredVector, error) {
	rows, err := s.a.exec.RunSQL(ctx,
		fmt.Sprintf("SELECT id, embedding FROM %s WHERE embedding IS NOT NULL", s.baseTable), nil)
	if err != nil {
		return nil, err
	}
	out := make([]types.StoredVector, 0, len(rows))
	for _, row := range rows {
		v, err := decodeVectorRow(row, "id")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *inlineStore) count(ctx context.Context) (int64, error) {
	rows, err := s.a.exec.RunSQL(ctx,
		fmt.Sprintf("SELECT COUNT(*) AS n FROM %s WHERE embedding IS NOT NULL", s.baseTable), nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0]["n"].(int64)
	return n, nil
}

func decodeVectorRow(row map[string]any, idCol string) (types.StoredVector, error) {
	var v types.StoredVector
	id, ok := textValue(row[idCol])
	if !ok {
		return v, fmt.Errorf("vector row has no %s", idCol)
	}
	v.RecordID = id

	var blob []byte
	switch raw := row["embedding"].(type) {
	case []byte:
		blob = raw
	case string:
		// Legacy rows stored the embedding as JSON text in a TEXT column
		blob = []byte(raw)
	default:
		return v, fmt.Errorf("vector row %s: unexpected embedding type %T", id, raw)
	}
	vec, err := decodeEmbedding(blob)
	if err != nil {
		return v, fmt.Errorf("vector row %s: %w", id, err)
	}
	v.Embedding = vec
	return v, nil
}

// now is separated for test injection of GeneratedAt stamps
var now = time.Now
