// Package storage publishes finished record collections to downstream
// stores. The JSON artifact written by the pipeline is the canonical
// output; sinks here are the "downstream publication" targets that
// consumers query.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a publication backend.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is a backend-agnostic publication sink.
//
// IMPORTANT: the interface is intentionally minimal. Each backend
// implements upsert semantics in its own idiomatic way (Postgres
// ON CONFLICT, SQLite OR REPLACE).
type Repository interface {
	// Close releases backend resources. Call once at process shutdown.
	Close()

	// EnsureSchema creates the destination table if needed, keeping
	// publication idempotent against a fresh store.
	EnsureSchema(ctx context.Context) error

	// UpsertRecords publishes one collection. ids[i] identifies payloads[i]
	// (each payload is one record as JSON); rows are keyed by
	// (recordType, year, id), so re-publishing the same run overwrites
	// rather than duplicates. Returns the number of rows written.
	UpsertRecords(ctx context.Context, recordType string, year int, ids []string, payloads [][]byte) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
// Call from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Intentional, to fail fast on
//     ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
