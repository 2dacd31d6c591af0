package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/colstore/internal/embedder"
	"github.com/dshills/colstore/internal/naming"
	"github.com/dshills/colstore/pkg/types"
)

const (
	defaultTopK = 10
	// backfillConcurrency bounds parallel embedding generation
	backfillConcurrency = 4
)

// VectorManager owns per-collection vector storage. For each collection it
// probes the dedicated {table}_vectors child table first and falls back to
// an inline embedding column; a fresh collection gets the dedicated table.
type VectorManager struct {
	a   *Adapter
	emb embedder.Embedder

	mu     sync.Mutex
	stores map[string]vectorStore
}

func newVectorManager(a *Adapter, emb embedder.Embedder) *VectorManager {
	return &VectorManager{a: a, emb: emb, stores: make(map[string]vectorStore)}
}

func (m *VectorManager) forget(collection string) {
	m.mu.Lock()
	delete(m.stores, collection)
	m.mu.Unlock()
}

func (m *VectorManager) storeFor(ctx context.Context, collection string) (vectorStore, error) {
	m.mu.Lock()
	if s, ok := m.stores[collection]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	schema, table, err := m.a.schemaFor(collection)
	if err != nil {
		return nil, err
	}

	var store vectorStore
	vecTable := naming.VectorTableName(table)
	exists, err := m.a.tableExists(ctx, vecTable)
	if err != nil {
		return nil, err
	}
	switch {
	case exists:
		store = &dedicatedStore{a: m.a, baseTable: table, vecTable: vecTable}
	case schema.Field("embedding") != nil:
		store = &inlineStore{a: m.a, baseTable: table}
	default:
		store = &dedicatedStore{a: m.a, baseTable: table, vecTable: vecTable}
		if err := store.ensure(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.stores[collection] = store
	m.mu.Unlock()
	return store, nil
}

// EnsureVectorStorage sets up vector storage for a collection, selecting
// the storage pattern via the dedicated-then-inline probe
func (a *Adapter) EnsureVectorStorage(ctx context.Context, collection string) error {
	s, err := a.vectors.storeFor(ctx, collection)
	if err != nil {
		return err
	}
	return s.ensure(ctx)
}

// IndexVector stores an embedding for a record, overwriting any previous
// vector for the same record
func (a *Adapter) IndexVector(ctx context.Context, collection, recordID string, embedding []float32, model string) error {
	if len(embedding) == 0 {
		return fmt.Errorf("index vector %s/%s: empty embedding", collection, recordID)
	}
	s, err := a.vectors.storeFor(ctx, collection)
	if err != nil {
		return err
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}
	return s.storeOne(ctx, types.StoredVector{
		RecordID:    recordID,
		Embedding:   embedding,
		Model:       model,
		GeneratedAt: now().UTC(),
	})
}

// VectorSearch ranks stored vectors against the query vector and returns
// the top k by the chosen metric. Vectors of a different dimension are
// skipped rather than scored.
func (a *Adapter) VectorSearch(ctx context.Context, collection string, query []float32, topK int, metric types.DistanceMetric) ([]types.VectorResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("vector search %s: empty query vector", collection)
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	s, err := a.vectors.storeFor(ctx, collection)
	if err != nil {
		return nil, err
	}
	stored, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	score := similarityFor(metric)
	results := make([]types.VectorResult, 0, len(stored))
	for _, v := range stored {
		if len(v.Embedding) != len(query) {
			continue
		}
		results = append(results, types.VectorResult{RecordID: v.RecordID, Score: score(query, v.Embedding)})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// GenerateEmbedding produces an embedding for text via the configured
// provider
func (a *Adapter) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if a.vectors.emb == nil {
		return nil, ErrNoEmbedder
	}
	return a.vectors.emb.Embed(ctx, text)
}

// BackfillVectors indexes every record in the collection that lacks a
// vector, reading text from textField. Embedding generation runs with
// bounded concurrency; stores are serialized through the executor.
func (a *Adapter) BackfillVectors(ctx context.Context, collection, textField string, batchSize int) (*types.BackfillStats, error) {
	if a.vectors.emb == nil {
		return nil, ErrNoEmbedder
	}
	s, err := a.vectors.storeFor(ctx, collection)
	if err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	existing, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	indexed := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		indexed[v.RecordID] = struct{}{}
	}

	if batchSize <= 0 {
		batchSize = 100
	}
	stats := &types.BackfillStats{Collection: collection}
	model := a.vectors.emb.Model()

	cursor := ""
	for {
		q := types.Query{
			Collection: collection,
			Sort:       []types.SortSpec{{Field: "id"}},
			Limit:      batchSize,
		}
		if cursor != "" {
			q.Cursor = &types.Cursor{Field: "id", Value: cursor, Direction: types.CursorAfter}
		}
		records, err := a.Query(ctx, q)
		if err != nil {
			return stats, err
		}
		if len(records) == 0 {
			break
		}
		cursor = records[len(records)-1].ID

		type pending struct {
			id   string
			text string
		}
		var work []pending
		for _, rec := range records {
			stats.Scanned++
			if _, done := indexed[rec.ID]; done {
				stats.Skipped++
				continue
			}
			text, _ := rec.Data[textField].(string)
			if text == "" {
				stats.Skipped++
				continue
			}
			work = append(work, pending{id: rec.ID, text: text})
		}

		vectors := make([][]float32, len(work))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(backfillConcurrency)
		for i, w := range work {
			i, w := i, w
			g.Go(func() error {
				vec, err := a.vectors.emb.Embed(gctx, w.text)
				if err != nil {
					return fmt.Errorf("embed record %s: %w", w.id, err)
				}
				vectors[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		for i, w := range work {
			err := s.storeOne(ctx, types.StoredVector{
				RecordID:    w.id,
				Embedding:   vectors[i],
				Model:       model,
				GeneratedAt: now().UTC(),
			})
			if err != nil {
				return stats, err
			}
			stats.Indexed++
		}

		a.log.Info("backfill progress",
			zap.String("collection", collection),
			zap.Int64("scanned", stats.Scanned),
			zap.Int64("indexed", stats.Indexed))

		if len(records) < batchSize {
			break
		}
	}
	return stats, nil
}

// VectorIndexStats reports vector coverage for a collection
func (a *Adapter) VectorIndexStats(ctx context.Context, collection string) (*types.VectorIndexStats, error) {
	s, err := a.vectors.storeFor(ctx, collection)
	if err != nil {
		return nil, err
	}
	indexed, err := s.count(ctx)
	if err != nil {
		return nil, err
	}
	total, err := a.Count(ctx, types.Query{Collection: collection})
	if err != nil {
		return nil, err
	}
	stats := &types.VectorIndexStats{
		Collection:   collection,
		Pattern:      s.pattern(),
		IndexedCount: indexed,
		RecordCount:  total,
	}
	if a.vectors.emb != nil {
		stats.Dimension = a.vectors.emb.Dimension()
	}
	return stats, nil
}

// VectorCapabilities describes the vector subsystem's supported metrics,
// storage patterns, and embedding provider
func (a *Adapter) VectorCapabilities() *types.VectorCapabilities {
	caps := &types.VectorCapabilities{
		Metrics:         []types.DistanceMetric{types.MetricCosine, types.MetricDot, types.MetricEuclidean},
		StoragePatterns: []types.VectorStoragePattern{types.VectorStorageDedicated, types.VectorStorageInline},
	}
	if a.vectors.emb != nil {
		caps.EmbeddingProvider = a.vectors.emb.Provider()
		caps.EmbeddingModel = a.vectors.emb.Model()
		caps.Dimension = a.vectors.emb.Dimension()
	}
	return caps
}
