// Package storage implements the schema-driven collection storage engine.
//
// The engine sits between application collections and a physical SQL store
// reached through the sqlexec.Executor capability. It manages:
//   - Physical table creation and append-only column migration from
//     CollectionSchema values
//   - Translation of the universal filter/sort/cursor query language into
//     parameterized SQL
//   - Create/update/delete and batch write sequences
//   - Reentrant transactions (nested calls join the outer transaction)
//   - Per-collection vector storage and similarity search
//   - A registry of independently configured database handles
//
// # Basic Usage
//
//	exec, err := sqlexec.OpenSQLite(sqlexec.DefaultSQLiteOptions(path))
//	if err != nil {
//	    return err
//	}
//	adapter, err := storage.NewAdapter(ctx, exec, storage.AdapterOptions{Logger: log})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close()
//
//	if err := adapter.EnsureSchema(ctx, "users", schema); err != nil {
//	    return err
//	}
//	rec, err := adapter.Create(ctx, "users", map[string]any{"email": "a@x.com"})
//
// # Transactions
//
// WithTransaction wraps a sequence of operations in one physical
// BEGIN/COMMIT. Nesting is transparent: an inner WithTransaction joins the
// outer transaction rather than opening a new one.
//
//	err := adapter.WithTransaction(ctx, func(ctx context.Context) error {
//	    if _, err := adapter.Create(ctx, "users", u); err != nil {
//	        return err
//	    }
//	    _, err := adapter.Create(ctx, "events", e)
//	    return err
//	})
//
// True concurrent isolation requires one adapter per logical caller; the
// transaction depth counter serializes nesting, not independent callers.
package storage
