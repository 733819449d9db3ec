package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"moviedw/internal/storage"
)

// Warehouse implements storage.Warehouse for SQLite (modernc.org/sqlite).
//
// Key differences from Postgres:
//   - The pool is pinned to one connection: PRAGMA foreign_keys is
//     per-connection and ":memory:" databases are per-connection too.
//   - There is no TRUNCATE. Truncate deletes rows and clears the
//     AUTOINCREMENT counters in sqlite_sequence.
//   - Views cannot be replaced in place, so they are dropped and recreated.
type Warehouse struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database at cfg.DSN and enables foreign key enforcement.
func New(ctx context.Context, cfg storage.Config) (storage.Warehouse, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return &Warehouse{db: db}, nil
}

func (w *Warehouse) Close() { _ = w.db.Close() }

// DB exposes the handle for callers that read the warehouse directly.
func (w *Warehouse) DB() *sql.DB { return w.db }

func (w *Warehouse) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		q, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := w.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (w *Warehouse) EnsureViews(ctx context.Context, views []storage.ViewSpec) error {
	for _, v := range views {
		for _, q := range buildViewSQL(v) {
			if _, err := w.db.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("create view %s: %w", v.Name, err)
			}
		}
	}
	return nil
}

func (w *Warehouse) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (w *Warehouse) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Tx implements storage.Tx and storage.RowWriter over *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

// Truncate deletes rows table by table, in the given order, then resets
// the AUTOINCREMENT counters so new ids start at 1.
func (t *Tx) Truncate(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	for _, name := range tables {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return fmt.Errorf("truncate %s: %w", name, err)
		}
	}

	var seq int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'`).Scan(&seq)
	if err != nil {
		return fmt.Errorf("truncate: lookup sqlite_sequence: %w", err)
	}
	if seq == 0 {
		return nil
	}
	q, args := buildResetSequenceSQL(tables)
	if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("truncate: reset sequences: %w", err)
	}
	return nil
}

func (t *Tx) Load(ctx context.Context, table string, columns []string, rows [][]any) (storage.LoadResult, error) {
	return storage.WriteTwoTier(ctx, t, table, columns, rows)
}

func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	for _, chunk := range storage.ChunkRows(rows, len(columns), maxParams, 0) {
		q, args := buildInsertSQL(table, columns, chunk)
		if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+sqlIdent(name))
	return err
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sqlIdent(name))
	return err
}

func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sqlIdent(name))
	return err
}

func (t *Tx) IDs(ctx context.Context, table, column string) ([]int64, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", sqlIdent(column), table, sqlIdent(column))
	rows, err := t.tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ids %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ids %s.%s: scan: %w", table, column, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (t *Tx) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (t *Tx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *Tx) Rollback(context.Context) error { return t.tx.Rollback() }

var (
	_ storage.Warehouse = (*Warehouse)(nil)
	_ storage.Tx        = (*Tx)(nil)
	_ storage.RowWriter = (*Tx)(nil)
)
