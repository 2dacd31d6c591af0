package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteOptions configures connection pragmas applied once at open
type SQLiteOptions struct {
	Path          string
	BusyTimeoutMs int
	CacheSizeKB   int
	Synchronous   string // OFF, NORMAL, FULL
	JournalMode   string // WAL, DELETE, MEMORY
}

// DefaultSQLiteOptions returns the production pragma profile
func DefaultSQLiteOptions(path string) SQLiteOptions {
	return SQLiteOptions{
		Path:          path,
		BusyTimeoutMs: 5000,
		CacheSizeKB:   8192,
		Synchronous:   "NORMAL",
		JournalMode:   "WAL",
	}
}

// SQLiteExecutor implements Executor over an embedded SQLite database
type SQLiteExecutor struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database and applies the pragma profile.
// The pool is pinned to a single connection: SQLite benefits from a single
// writer, and explicit BEGIN/COMMIT sequences must land on one connection.
func OpenSQLite(opts SQLiteOptions) (*SQLiteExecutor, error) {
	db, err := sql.Open(DriverName, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", orDefault(opts.JournalMode, "WAL")),
		fmt.Sprintf("PRAGMA synchronous=%s", orDefault(opts.Synchronous, "NORMAL")),
		fmt.Sprintf("PRAGMA busy_timeout=%d", orDefaultInt(opts.BusyTimeoutMs, 5000)),
		fmt.Sprintf("PRAGMA cache_size=-%d", orDefaultInt(opts.CacheSizeKB, 8192)),
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}

	return &SQLiteExecutor{db: db}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// RunSQL executes a row-returning statement and maps each row by column name
func (e *SQLiteExecutor) RunSQL(ctx context.Context, query string, params []any) ([]map[string]any, error) {
	rows, err := e.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RunStatement executes a non-row-returning statement
func (e *SQLiteExecutor) RunStatement(ctx context.Context, query string, params []any) (Result, error) {
	res, err := e.db.ExecContext(ctx, query, params...)
	if err != nil {
		return Result{}, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		lastID = 0
	}
	changes, err := res.RowsAffected()
	if err != nil {
		changes = 0
	}
	return Result{LastID: lastID, Changes: changes}, nil
}

// Close closes the database connection
func (e *SQLiteExecutor) Close() error {
	return e.db.Close()
}
