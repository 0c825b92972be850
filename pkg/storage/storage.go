package storage

import "context"

// Provider is the minimal persistence contract the generator writes artifacts
// through. Operations are addressed by op name (for example
// "generator.write") so the same provider can back a local directory, an
// in-memory tree used by tests, or a remote bucket.
type Provider interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
}

// CapabilityReporter exposes optional provider features so callers can make
// runtime decisions (for example skipping rename-based atomic writes).
type CapabilityReporter interface {
	Capabilities() Capabilities
}

// Config captures the runtime configuration for a storage provider.
type Config struct {
	Name     string
	Driver   string
	DSN      string
	ReadOnly bool
	Options  map[string]any
}

// Capabilities documents optional behaviours supported by a provider.
type Capabilities struct {
	AtomicWrites bool
	Listing      bool
	Metadata     map[string]any
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}

type Transaction interface {
	Provider
	Commit() error
	Rollback() error
}
