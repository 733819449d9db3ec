package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config is the minimal configuration needed to open a warehouse.
//
// Kind must match a registered backend ("postgres", "sqlite", "mssql").
// DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Warehouse is the backend-agnostic surface the loader needs.
//
// Each backend implements these semantics in its own dialect: identity
// columns, truncate-and-reseed, savepoints and view replacement differ
// between Postgres, SQLite and SQL Server.
type Warehouse interface {
	// Close releases backend resources. Call once.
	Close()

	// EnsureTables creates tables that do not exist yet. Idempotent.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// EnsureViews creates or replaces every view.
	EnsureViews(ctx context.Context, views []ViewSpec) error

	// Begin opens the transaction a full-replace load runs in.
	Begin(ctx context.Context) (Tx, error)

	// CountRows returns the number of rows in table.
	CountRows(ctx context.Context, table string) (int64, error)
}

// Tx is one load transaction. Nothing it writes is visible to other
// sessions until Commit.
type Tx interface {
	// Truncate empties tables in the given order and resets their identity
	// sequences so the next surrogate key is 1.
	Truncate(ctx context.Context, tables ...string) error

	// Load writes rows with the two-tier strategy (see WriteTwoTier).
	Load(ctx context.Context, table string, columns []string, rows [][]any) (LoadResult, error)

	// IDs returns every value of an integer column in ascending order.
	IDs(ctx context.Context, table, column string) ([]int64, error)

	// CountRows counts rows as seen inside the transaction.
	CountRows(ctx context.Context, table string) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type factory func(ctx context.Context, cfg Config) (Warehouse, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under kind. Call it from a backend
// package's init().
//
// Panics if kind is empty, f is nil, or kind is already registered.
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

// Open constructs a Warehouse using the registered backend factory.
func Open(ctx context.Context, cfg Config) (Warehouse, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
