package types

import "time"

// Metadata carries the engine-managed base fields of a record
type Metadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`
}

// Record is the envelope returned by every read path.
// Data holds the schema fields plus a duplicate of the record id, which
// entity-object callers rely on. Metadata.CreatedAt is always the value
// stored at creation time.
type Record struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	Metadata   Metadata       `json:"metadata"`
}

// CollectionStats summarizes one collection's physical footprint
type CollectionStats struct {
	Collection  string   `json:"collection"`
	TableName   string   `json:"tableName"`
	RecordCount int64    `json:"recordCount"`
	Indexes     []string `json:"indexes"`
}

// ExplainResult is the diagnostic output of explainQuery
type ExplainResult struct {
	SQL           string   `json:"sql"`
	Params        []any    `json:"params"`
	EstimatedRows int64    `json:"estimatedRows"`
	Plan          []string `json:"plan,omitempty"`
}
