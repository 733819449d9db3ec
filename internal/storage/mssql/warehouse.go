package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"moviedw/internal/storage"
)

// Warehouse implements storage.Warehouse for Microsoft SQL Server.
//
// Dialect notes:
//   - Surrogate keys are INT IDENTITY(1,1). Truncate deletes rows (TRUNCATE
//     is refused on tables referenced by a foreign key) and reseeds with
//     DBCC CHECKIDENT.
//   - Savepoints are SAVE TRANSACTION / ROLLBACK TRANSACTION. There is no
//     release, so Release is a no-op.
//   - Views are CREATE OR ALTER and carry no ORDER BY: SQL Server rejects
//     ORDER BY in a view without TOP. Readers order explicitly.
type Warehouse struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a database/sql handle with the "sqlserver" driver and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.Warehouse, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Warehouse{db: db}, nil
}

func (w *Warehouse) Close() { _ = w.db.Close() }

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
		if _, err := w.db.ExecContext(ctx, buildViewSQL(v)); err != nil {
			return fmt.Errorf("create view %s: %w", v.Name, err)
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
	if err := w.db.QueryRowContext(ctx, buildCountSQL(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Tx implements storage.Tx and storage.RowWriter over *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Truncate(ctx context.Context, tables ...string) error {
	for _, name := range tables {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+mssqlTableIdent(name)+";"); err != nil {
			return fmt.Errorf("truncate %s: %w", name, err)
		}
	}
	for _, name := range tables {
		if _, err := t.tx.ExecContext(ctx, buildReseedSQL(name)); err != nil {
			return fmt.Errorf("reseed %s: %w", name, err)
		}
	}
	return nil
}

func (t *Tx) Load(ctx context.Context, table string, columns []string, rows [][]any) (storage.LoadResult, error) {
	return storage.WriteTwoTier(ctx, t, table, columns, rows)
}

func (t *Tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	for _, chunk := range storage.ChunkRows(rows, len(columns), maxParams, maxRows) {
		q, args := buildInsertSQL(table, columns, chunk)
		if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVE TRANSACTION "+mssqlIdent(name)+";")
	return err
}

func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TRANSACTION "+mssqlIdent(name)+";")
	return err
}

// Release is a no-op: SQL Server savepoints live until the transaction ends.
func (t *Tx) Release(context.Context, string) error { return nil }

func (t *Tx) IDs(ctx context.Context, table, column string) ([]int64, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s;", mssqlIdent(column), mssqlTableIdent(table), mssqlIdent(column))
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
	if err := t.tx.QueryRowContext(ctx, buildCountSQL(table)).Scan(&n); err != nil {
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
