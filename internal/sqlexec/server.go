package sqlexec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server exposes an Executor over a unix domain socket so that multiple
// client processes can share one embedded database.
type Server struct {
	exec       Executor
	socketPath string
	log        *zap.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	connMu     sync.Mutex
	conns      map[net.Conn]struct{}
}

// NewServer creates a bridge server for the given executor
func NewServer(exec Executor, socketPath string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{exec: exec, socketPath: socketPath, log: log}
}

// Serve accepts connections until ctx is cancelled. The socket file is
// created owner-only and removed on exit.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln
	s.conns = make(map[net.Conn]struct{})

	defer func() {
		_ = ln.Close()
		_ = os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		s.connMu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.connMu.Unlock()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				done := make(chan struct{})
				go func() { s.wg.Wait(); close(done) }()
				select {
				case <-done:
				case <-time.After(5 * time.Second):
					s.log.Warn("bridge shutdown timeout, forcing exit")
				}
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
			s.connMu.Lock()
			delete(s.conns, conn)
			s.connMu.Unlock()
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var req BridgeRequest
		if err := dec.Decode(&req); err != nil {
			s.writeResponse(conn, BridgeResponse{OK: false, Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		params, err := decodeWireValues(req.Params)
		if err != nil {
			s.writeResponse(conn, BridgeResponse{OK: false, ID: req.ID, Error: fmt.Sprintf("invalid params: %v", err)})
			continue
		}
		req.Params = params

		resp := s.dispatch(ctx, req)
		s.writeResponse(conn, resp)

		if req.Method == MethodClose {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Warn("bridge connection error", zap.Error(err))
	}
}

func (s *Server) dispatch(ctx context.Context, req BridgeRequest) BridgeResponse {
	switch req.Method {
	case MethodPing, MethodClose:
		return BridgeResponse{OK: true, ID: req.ID}

	case MethodRunSQL:
		rows, err := s.exec.RunSQL(ctx, req.SQL, req.Params)
		if err != nil {
			return BridgeResponse{OK: false, ID: req.ID, Error: err.Error()}
		}
		return BridgeResponse{OK: true, ID: req.ID, Rows: encodeWireRows(rows)}

	case MethodRunStatement:
		res, err := s.exec.RunStatement(ctx, req.SQL, req.Params)
		if err != nil {
			return BridgeResponse{OK: false, ID: req.ID, Error: err.Error()}
		}
		return BridgeResponse{OK: true, ID: req.ID, LastID: res.LastID, Changes: res.Changes}

	default:
		return BridgeResponse{OK: false, ID: req.ID, Error: fmt.Sprintf("unknown method %q", req.Method)}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp BridgeResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", zap.Error(err))
		return
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}
