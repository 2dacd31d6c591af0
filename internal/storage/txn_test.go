package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/colstore/internal/sqlexec"
	"github.com/dshills/colstore/pkg/types"
)

// recordingExec wraps an executor and keeps every statement it ran
type recordingExec struct {
	sqlexec.Executor

	mu    sync.Mutex
	stmts []string
}

func (r *recordingExec) RunStatement(ctx context.Context, stmt string, params []any) (sqlexec.Result, error) {
	r.mu.Lock()
	r.stmts = append(r.stmts, stmt)
	r.mu.Unlock()
	return r.Executor.RunStatement(ctx, stmt, params)
}

func (r *recordingExec) count(stmt string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.stmts {
		if s == stmt {
			n++
		}
	}
	return n
}

func newRecordingAdapter(t *testing.T) (*Adapter, *recordingExec) {
	t.Helper()
	rec := &recordingExec{Executor: newTestExec(t)}
	a, err := NewAdapter(context.Background(), rec, AdapterOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, rec
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := a.Create(ctx, "users", map[string]any{"name": "a"}); err != nil {
			return err
		}
		_, err := a.Create(ctx, "users", map[string]any{"name": "b"})
		return err
	})
	require.NoError(t, err)

	n, err := a.Count(ctx, types.Query{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	boom := errors.New("boom")
	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := a.Create(ctx, "users", map[string]any{"name": "a"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom, "the caller's error comes back unchanged")

	n, err := a.Count(ctx, types.Query{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "rollback undid the create")
}

// Nested WithTransaction calls join the outer transaction: exactly one
// BEGIN/COMMIT pair reaches the store.
func TestNestedTransactionsCollapse(t *testing.T) {
	ctx := context.Background()
	a, rec := newRecordingAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		assert.True(t, a.InTransaction())
		return a.WithTransaction(ctx, func(ctx context.Context) error {
			return a.WithTransaction(ctx, func(ctx context.Context) error {
				_, err := a.Create(ctx, "users", map[string]any{"name": "deep"})
				return err
			})
		})
	})
	require.NoError(t, err)
	assert.False(t, a.InTransaction())

	assert.Equal(t, 1, rec.count("BEGIN"))
	assert.Equal(t, 1, rec.count("COMMIT"))
	assert.Equal(t, 0, rec.count("ROLLBACK"))
}

// An inner error rolls back the whole chain, not just the inner scope.
func TestNestedTransactionInnerError(t *testing.T) {
	ctx := context.Background()
	a, rec := newRecordingAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	boom := errors.New("inner boom")
	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := a.Create(ctx, "users", map[string]any{"name": "outer"}); err != nil {
			return err
		}
		return a.WithTransaction(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	n, err := a.Count(ctx, types.Query{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 1, rec.count("ROLLBACK"))
	assert.Equal(t, 0, rec.count("COMMIT"))
}

func TestTransactionDepthUnwindsAfterError(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	require.NoError(t, a.EnsureSchema(ctx, "users", userSchema()))

	_ = a.WithTransaction(ctx, func(ctx context.Context) error {
		return errors.New("fail")
	})
	assert.False(t, a.InTransaction())

	// The adapter is still usable
	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := a.Create(ctx, "users", map[string]any{"name": "after"})
		return err
	})
	require.NoError(t, err)
}
