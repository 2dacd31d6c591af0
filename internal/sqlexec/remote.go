package sqlexec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// RemoteExecutor implements Executor by forwarding statements to a bridge
// server over a unix domain socket. Requests are serialized on a single
// connection; one in-flight request at a time.
type RemoteExecutor struct {
	socketPath string
	conn       net.Conn
	reader     *bufio.Reader
	mu         sync.Mutex
	reqID      atomic.Int64
	closed     bool
}

// DialRemote connects to a bridge server at the given socket path
func DialRemote(socketPath string) (*RemoteExecutor, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to bridge at %s: %w", socketPath, err)
	}
	return &RemoteExecutor{
		socketPath: socketPath,
		conn:       conn,
		reader:     bufio.NewReader(conn),
	}, nil
}

// RunSQL forwards a row-returning statement to the bridge
func (r *RemoteExecutor) RunSQL(ctx context.Context, query string, params []any) ([]map[string]any, error) {
	resp, err := r.send(BridgeRequest{Method: MethodRunSQL, SQL: query, Params: encodeWireValues(params)})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("remote run_sql failed: %s", resp.Error)
	}
	if resp.Rows == nil {
		return []map[string]any{}, nil
	}
	rows, err := decodeWireRows(resp.Rows)
	if err != nil {
		return nil, fmt.Errorf("decode response rows: %w", err)
	}
	return rows, nil
}

// RunStatement forwards a non-row-returning statement to the bridge
func (r *RemoteExecutor) RunStatement(ctx context.Context, query string, params []any) (Result, error) {
	resp, err := r.send(BridgeRequest{Method: MethodRunStatement, SQL: query, Params: encodeWireValues(params)})
	if err != nil {
		return Result{}, err
	}
	if !resp.OK {
		return Result{}, fmt.Errorf("remote run_statement failed: %s", resp.Error)
	}
	return Result{LastID: resp.LastID, Changes: resp.Changes}, nil
}

// Ping verifies the bridge is reachable
func (r *RemoteExecutor) Ping() error {
	resp, err := r.send(BridgeRequest{Method: MethodPing})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("ping failed: %s", resp.Error)
	}
	return nil
}

// Close disconnects from the bridge
func (r *RemoteExecutor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.conn.Close()
}

func (r *RemoteExecutor) send(req BridgeRequest) (*BridgeResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("remote executor is closed")
	}

	req.ID = fmt.Sprintf("%d", r.reqID.Add(1))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(r.conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	line, err := r.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var resp BridgeResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}
