// Package storage defines the backend-agnostic contract used to apply
// migrations to a live database and to track which ones have been applied.
//
// Concrete backends (postgres, sqlite, mssql, mysql) register a Factory for
// their kind at init time; callers import storage/all and open a Repository
// with New without depending on any backend package directly.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultLedgerTable is the table that records applied migrations when
// Config.LedgerTable is empty.
const DefaultLedgerTable = "schema_migrations"

// LedgerEntry is one applied migration. Seq is the migration's 1-based
// position in its batch; Checksum identifies the forward statement that was
// executed.
type LedgerEntry struct {
	Seq       int
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Repository executes migration statements and maintains the ledger.
type Repository interface {
	// Exec runs a single statement outside the ledger.
	Exec(ctx context.Context, sql string) error
	// EnsureLedger creates the ledger table if it does not exist.
	EnsureLedger(ctx context.Context) error
	// Applied lists ledger entries ordered by Seq.
	Applied(ctx context.Context) ([]LedgerEntry, error)
	// Apply runs stmt and records e, in one transaction where the engine
	// allows transactional DDL.
	Apply(ctx context.Context, stmt string, e LedgerEntry) error
	// Revert runs stmt and removes the ledger entry called name.
	Revert(ctx context.Context, stmt string, name string) error
	// Dialect names the dialect statements must be rendered in.
	Dialect() string
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind        string
	DSN         string
	LedgerTable string
}

// Ledger returns LedgerTable or the default.
func (c Config) Ledger() string {
	if c.LedgerTable == "" {
		return DefaultLedgerTable
	}
	return c.LedgerTable
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the Factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
