package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNoSchema is returned when an operation targets a collection that
	// has never been verified and no schema was supplied. This is a
	// configuration error, never silently bypassed.
	ErrNoSchema = errors.New("no schema for collection")
	// ErrUnknownField is returned when a query references a field absent
	// from the collection's schema
	ErrUnknownField = errors.New("unknown field")
	// ErrNoEmbedder is returned by embedding operations when the adapter
	// was constructed without an embedding provider
	ErrNoEmbedder = errors.New("no embedding provider configured")
	// ErrDimensionMismatch is returned when a query vector's dimension
	// differs from the stored embeddings
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrDefaultHandle is returned when attempting to close the default handle
	ErrDefaultHandle = errors.New("default handle cannot be closed")
	// ErrUnknownHandle is returned by Close for a handle that is not open.
	// Get never returns it; unknown handles there fall back to the default.
	ErrUnknownHandle = errors.New("unknown handle")
	// ErrUnknownBackend is returned by Open for an unrecognized backend name
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrIntegrity is returned when the startup write-then-read probe fails
	ErrIntegrity = errors.New("storage integrity check failed")
)
