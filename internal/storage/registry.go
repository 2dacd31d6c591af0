package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/colstore/internal/sqlexec"
)

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// DefaultHandle names the handle opened at registry construction. It
// stays open for the registry's lifetime and Close refuses it.
const DefaultHandle = "default"

// HandleConfig describes one storage connection
type HandleConfig struct {
	// Backend selects the executor: BackendSQLite or BackendRemote
	Backend string
	// SQLite holds the database options when Backend is sqlite
	SQLite sqlexec.SQLiteOptions
	// SocketPath is the bridge socket when Backend is remote
	SocketPath string
	// EmitEvents marks whether CRUD on this handle should emit change
	// events; the registry records the flag, event delivery is the
	// caller's concern
	EmitEvents bool
}

// HandleInfo is the registry's metadata for an open handle
type HandleInfo struct {
	ID         string
	Backend    string
	OpenedAt   time.Time
	LastUsedAt time.Time
	EmitEvents bool
}

type handleEntry struct {
	adapter *Adapter
	info    HandleInfo
}

// Registry owns a set of independently configured adapters keyed by
// handle id. It is constructed explicitly and passed to call sites;
// there is no package-level instance.
type Registry struct {
	log  *zap.Logger
	opts AdapterOptions

	mu      sync.Mutex
	handles map[string]*handleEntry
	closed  bool
}

// NewRegistry opens the default handle from cfg and returns a registry
// holding it. Adapter options (logger, embedder) apply to every handle
// the registry opens.
func NewRegistry(ctx context.Context, cfg HandleConfig, opts AdapterOptions) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = log

	r := &Registry{
		log:     log,
		opts:    opts,
		handles: make(map[string]*handleEntry),
	}
	if err := r.open(ctx, DefaultHandle, cfg); err != nil {
		return nil, fmt.Errorf("open default handle: %w", err)
	}
	return r, nil
}

func (r *Registry) open(ctx context.Context, id string, cfg HandleConfig) error {
	var exec sqlexec.Executor
	var err error
	switch cfg.Backend {
	case BackendSQLite:
		exec, err = sqlexec.OpenSQLite(cfg.SQLite)
	case BackendRemote:
		exec, err = sqlexec.DialRemote(cfg.SocketPath)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return err
	}

	adapter, err := NewAdapter(ctx, exec, r.opts)
	if err != nil {
		_ = exec.Close()
		return err
	}

	nowTime := time.Now().UTC()
	r.mu.Lock()
	r.handles[id] = &handleEntry{
		adapter: adapter,
		info: HandleInfo{
			ID:         id,
			Backend:    cfg.Backend,
			OpenedAt:   nowTime,
			LastUsedAt: nowTime,
			EmitEvents: cfg.EmitEvents,
		},
	}
	r.mu.Unlock()

	r.log.Info("handle opened",
		zap.String("handle", id),
		zap.String("backend", cfg.Backend))
	return nil
}

// Open creates a new adapter from cfg and returns its generated handle id
func (r *Registry) Open(ctx context.Context, cfg HandleConfig) (string, error) {
	id := uuid.NewString()
	if err := r.open(ctx, id, cfg); err != nil {
		return "", err
	}
	return id, nil
}

// Close tears down a handle and removes it. The default handle is
// refused; close it only via CloseAll at shutdown.
func (r *Registry) Close(handle string) error {
	if handle == DefaultHandle {
		return ErrDefaultHandle
	}
	r.mu.Lock()
	entry, ok := r.handles[handle]
	if ok {
		delete(r.handles, handle)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, handle)
	}

	r.log.Info("handle closed", zap.String("handle", handle))
	return entry.adapter.Close()
}

// Get resolves a handle to its adapter and stamps last-used. An empty
// or unknown handle resolves to the default adapter; unknown handles
// are logged rather than failed so stale handle ids degrade gracefully.
func (r *Registry) Get(handle string) *Adapter {
	if handle == "" {
		handle = DefaultHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.handles[handle]
	if !ok {
		r.log.Warn("unknown handle, falling back to default", zap.String("handle", handle))
		entry = r.handles[DefaultHandle]
		if entry == nil {
			return nil
		}
	}
	entry.info.LastUsedAt = time.Now().UTC()
	return entry.adapter
}

// Default returns the default adapter
func (r *Registry) Default() *Adapter {
	return r.Get(DefaultHandle)
}

// List returns metadata for every open handle, default first then by id
func (r *Registry) List() []HandleInfo {
	r.mu.Lock()
	out := make([]HandleInfo, 0, len(r.handles))
	for _, entry := range r.handles {
		out = append(out, entry.info)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ID == DefaultHandle {
			return true
		}
		if out[j].ID == DefaultHandle {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CloseAll closes every handle including the default. The registry is
// unusable afterwards.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := make([]*handleEntry, 0, len(r.handles))
	for _, entry := range r.handles {
		entries = append(entries, entry)
	}
	r.handles = make(map[string]*handleEntry)
	r.mu.Unlock()

	var firstErr error
	for _, entry := range entries {
		if err := entry.adapter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
