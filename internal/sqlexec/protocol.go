package sqlexec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Wire protocol for the remote executor bridge. Requests and responses are
// newline-delimited JSON over a unix domain socket.
//
// Plain JSON degrades SQL values: every number becomes float64 and []byte
// becomes a bare base64 string indistinguishable from TEXT. Both ends
// therefore decode with json.Decoder.UseNumber, split json.Number back into
// int64 or float64, and wrap BLOB values in a {"$blob": "<base64>"} object
// so they round-trip as []byte.

// BridgeRequest is a request sent from a RemoteExecutor to the bridge server
type BridgeRequest struct {
	Method string `json:"method"`
	ID     string `json:"id"`
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`
}

// BridgeResponse is a response sent from the bridge server to a client
type BridgeResponse struct {
	OK      bool             `json:"ok"`
	ID      string           `json:"id"`
	Rows    []map[string]any `json:"rows,omitempty"`
	LastID  int64            `json:"lastId,omitempty"`
	Changes int64            `json:"changes,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Bridge protocol method constants
const (
	MethodRunSQL       = "run_sql"
	MethodRunStatement = "run_statement"
	MethodPing         = "ping"
	MethodClose        = "close"
)

// wireBlobKey marks a JSON object carrying a base64-encoded BLOB value.
const wireBlobKey = "$blob"

func encodeWireValue(v any) any {
	if b, ok := v.([]byte); ok {
		return map[string]any{wireBlobKey: base64.StdEncoding.EncodeToString(b)}
	}
	return v
}

func encodeWireValues(vals []any) []any {
	if vals == nil {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = encodeWireValue(v)
	}
	return out
}

func encodeWireRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = encodeWireValue(v)
		}
		out[i] = m
	}
	return out
}

// decodeWireValue reverses encodeWireValue. The payload must have been
// decoded with UseNumber so integers arrive as json.Number, not float64.
func decodeWireValue(v any) (any, error) {
	switch raw := v.(type) {
	case json.Number:
		if n, err := raw.Int64(); err == nil {
			return n, nil
		}
		f, err := raw.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad numeric value %q: %w", raw.String(), err)
		}
		return f, nil
	case map[string]any:
		enc, ok := raw[wireBlobKey]
		if !ok || len(raw) != 1 {
			return v, nil
		}
		s, ok := enc.(string)
		if !ok {
			return nil, fmt.Errorf("bad blob value of type %T", enc)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("bad blob value: %w", err)
		}
		return b, nil
	default:
		return v, nil
	}
}

func decodeWireValues(vals []any) ([]any, error) {
	if vals == nil {
		return nil, nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		dv, err := decodeWireValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = dv
	}
	return out, nil
}

func decodeWireRows(rows []map[string]any) ([]map[string]any, error) {
	for _, row := range rows {
		for k, v := range row {
			dv, err := decodeWireValue(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", k, err)
			}
			row[k] = dv
		}
	}
	return rows, nil
}
