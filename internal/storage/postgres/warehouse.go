package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moviedw/internal/storage"
)

// Warehouse implements storage.Warehouse for Postgres.
//
// Truncation uses RESTART IDENTITY so every full replace hands out surrogate
// keys from 1 again; the loader relies on that when it remaps rating user ids.
type Warehouse struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New opens a pgx pool and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Warehouse, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Warehouse{pool: pool}, nil
}

// Close closes the connection pool.
func (w *Warehouse) Close() { w.pool.Close() }

// EnsureTables creates missing tables. Idempotent.
func (w *Warehouse) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		q, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := w.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// EnsureViews creates or replaces every view.
func (w *Warehouse) EnsureViews(ctx context.Context, views []storage.ViewSpec) error {
	for _, v := range views {
		if _, err := w.pool.Exec(ctx, buildViewSQL(v)); err != nil {
			return fmt.Errorf("create view %s: %w", v.Name, err)
		}
	}
	return nil
}

// Begin opens the load transaction.
func (w *Warehouse) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// CountRows returns the committed row count of table.
func (w *Warehouse) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := w.pool.QueryRow(ctx, buildCountSQL(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Tx is a pgx transaction. It implements storage.Tx and storage.RowWriter.
type Tx struct {
	tx pgx.Tx
}

// Truncate empties tables in one statement and restarts their identities.
func (t *Tx) Truncate(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	if _, err := t.tx.Exec(ctx, buildTruncateSQL(tables)); err != nil {
		return fmt.Errorf("truncate %v: %w", tables, err)
	}
	return nil
}

// Load writes rows bulk-first with a row-by-row fallback.
func (t *Tx) Load(ctx context.Context, table string, columns []string, rows [][]any) (storage.LoadResult, error) {
	return storage.WriteTwoTier(ctx, t, table, columns, rows)
}

// InsertRows issues multi-row INSERTs, chunked under the bind parameter limit.
func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	for _, chunk := range storage.ChunkRows(rows, len(columns), maxParams, 0) {
		q, args := buildInsertSQL(table, columns, chunk)
		if _, err := t.tx.Exec(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "SAVEPOINT "+pgIdent(name))
	return err
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgIdent(name))
	return err
}

func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgIdent(name))
	return err
}

// IDs returns column values of table in ascending order.
func (t *Tx) IDs(ctx context.Context, table, column string) ([]int64, error) {
	rows, err := t.tx.Query(ctx, buildIDsSQL(table, column))
	if err != nil {
		return nil, fmt.Errorf("ids %s.%s: %w", table, column, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("ids %s.%s: %w", table, column, err)
	}
	return ids, nil
}

// CountRows counts rows as seen by the transaction.
func (t *Tx) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := t.tx.QueryRow(ctx, buildCountSQL(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (t *Tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

var (
	_ storage.Warehouse = (*Warehouse)(nil)
	_ storage.Tx        = (*Tx)(nil)
	_ storage.RowWriter = (*Tx)(nil)
)
