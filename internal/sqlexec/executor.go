// Package sqlexec defines the SQL executor capability consumed by the
// storage engine, plus the concrete backends: an embedded SQLite executor
// and a remote bridge that forwards statements to a worker process over a
// unix domain socket.
package sqlexec

import "context"

// Result reports the outcome of a data-modifying statement
type Result struct {
	LastID  int64
	Changes int64
}

// Executor is the two-method capability any backend must implement.
// The storage engine never touches a database except through this contract.
type Executor interface {
	// RunSQL executes a row-returning statement. Each row is a map from
	// column name to driver value.
	RunSQL(ctx context.Context, query string, params []any) ([]map[string]any, error)

	// RunStatement executes a non-row-returning statement
	RunStatement(ctx context.Context, query string, params []any) (Result, error)

	// Close releases the backend's resources
	Close() error
}
