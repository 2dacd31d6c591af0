package sqlexec

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startBridge(t *testing.T) *RemoteExecutor {
	t.Helper()

	backend, err := OpenSQLite(DefaultSQLiteOptions(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	socketPath := filepath.Join(t.TempDir(), "bridge.sock")
	server := NewServer(backend, socketPath, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.Serve(ctx) }()

	// Wait for the socket to appear
	var client *RemoteExecutor
	require.Eventually(t, func() bool {
		client, err = DialRemote(socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRemoteExecutor_Ping(t *testing.T) {
	client := startBridge(t)
	assert.NoError(t, client.Ping())
}

func TestRemoteExecutor_EndToEnd(t *testing.T) {
	client := startBridge(t)
	ctx := context.Background()

	_, err := client.RunStatement(ctx, "CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)", nil)
	require.NoError(t, err)

	res, err := client.RunStatement(ctx, "INSERT INTO notes (id, body) VALUES (?, ?)", []any{"n1", "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Changes)

	rows, err := client.RunSQL(ctx, "SELECT id, body FROM notes", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "n1", rows[0]["id"])
	assert.Equal(t, "hello", rows[0]["body"])
}

func TestRemoteExecutor_ValueFidelity(t *testing.T) {
	client := startBridge(t)
	ctx := context.Background()

	_, err := client.RunStatement(ctx,
		"CREATE TABLE samples (id TEXT PRIMARY KEY, n INTEGER, score REAL, active INTEGER, payload BLOB, note TEXT)", nil)
	require.NoError(t, err)

	blob := []byte{0x00, 0x01, 0xfe, 0xff, '[', ']'}
	_, err = client.RunStatement(ctx,
		"INSERT INTO samples (id, n, score, active, payload, note) VALUES (?, ?, ?, ?, ?, ?)",
		[]any{"s1", int64(42), 2.5, int64(1), blob, nil})
	require.NoError(t, err)

	rows, err := client.RunSQL(ctx, "SELECT n, score, active, payload, note FROM samples WHERE id = ?", []any{"s1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Values must come back with the same Go types a local executor yields
	assert.Equal(t, int64(42), rows[0]["n"])
	assert.Equal(t, 2.5, rows[0]["score"])
	assert.Equal(t, int64(1), rows[0]["active"])
	assert.Equal(t, blob, rows[0]["payload"])
	assert.Nil(t, rows[0]["note"])

	rows, err = client.RunSQL(ctx, "SELECT COUNT(*) AS n FROM samples", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["n"])

	// Integer params must bind as integers: LIMIT rejects non-integer values
	rows, err = client.RunSQL(ctx, "SELECT id FROM samples LIMIT ?", []any{int64(10)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRemoteExecutor_ErrorPropagation(t *testing.T) {
	client := startBridge(t)
	ctx := context.Background()

	// The underlying executor's message must survive the wire verbatim
	_, err := client.RunSQL(ctx, "SELECT * FROM no_such_table", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_table")
}

func TestRemoteExecutor_ClosedClient(t *testing.T) {
	client := startBridge(t)
	require.NoError(t, client.Close())

	_, err := client.RunSQL(context.Background(), "SELECT 1", nil)
	assert.Error(t, err)
}
