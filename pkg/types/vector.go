package types

import "time"

// DistanceMetric selects the similarity function for vector search
type DistanceMetric string

const (
	MetricCosine    DistanceMetric = "cosine"
	MetricDot       DistanceMetric = "dot"
	MetricEuclidean DistanceMetric = "euclidean"
)

// StoredVector is one embedding row, owned by the collection it indexes.
// At most one vector exists per record; re-indexing overwrites.
type StoredVector struct {
	RecordID    string    `json:"recordId"`
	Embedding   []float32 `json:"embedding"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// VectorResult is one similarity-search hit, higher score is closer
type VectorResult struct {
	RecordID string  `json:"recordId"`
	Score    float64 `json:"score"`
}

// VectorStoragePattern names where a collection's embeddings live
type VectorStoragePattern string

const (
	// VectorStorageDedicated uses a child table keyed by record id
	VectorStorageDedicated VectorStoragePattern = "dedicated"
	// VectorStorageInline uses an embedding column on the base table
	VectorStorageInline VectorStoragePattern = "inline"
)

// VectorIndexStats reports backfill coverage for one collection
type VectorIndexStats struct {
	Collection   string               `json:"collection"`
	Pattern      VectorStoragePattern `json:"pattern"`
	IndexedCount int64                `json:"indexedCount"`
	RecordCount  int64                `json:"recordCount"`
	Dimension    int                  `json:"dimension,omitempty"`
}

// BackfillStats reports the outcome of a backfill run
type BackfillStats struct {
	Collection string `json:"collection"`
	Scanned    int64  `json:"scanned"`
	Indexed    int64  `json:"indexed"`
	Skipped    int64  `json:"skipped"`
}

// VectorCapabilities describes what the vector subsystem supports
type VectorCapabilities struct {
	Metrics           []DistanceMetric       `json:"metrics"`
	StoragePatterns   []VectorStoragePattern `json:"storagePatterns"`
	EmbeddingProvider string                 `json:"embeddingProvider,omitempty"`
	EmbeddingModel    string                 `json:"embeddingModel,omitempty"`
	Dimension         int                    `json:"dimension,omitempty"`
}
