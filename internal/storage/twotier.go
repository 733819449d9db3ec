package storage

import (
	"context"
	"fmt"

	"moviedw/internal/metrics"
)

// RowWriter is the per-backend seam WriteTwoTier drives. Implementations
// run every call inside one open transaction.
type RowWriter interface {
	// InsertRows writes rows with as few statements as the dialect allows.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error

	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// LoadMode tells how a LoadResult was achieved.
type LoadMode string

const (
	ModeBulk   LoadMode = "bulk"
	ModeRowed  LoadMode = "row_by_row"
	ModeNoRows LoadMode = "empty"
)

// RowFailure is one row the row-by-row fallback could not insert.
type RowFailure struct {
	Index  int    `yaml:"index" json:"index"`
	Values []any  `yaml:"values" json:"values"`
	Reason string `yaml:"reason" json:"reason"`
}

// LoadResult reports a two-tier write.
type LoadResult struct {
	Table     string       `yaml:"table" json:"table"`
	Mode      LoadMode     `yaml:"mode" json:"mode"`
	Attempted int          `yaml:"attempted" json:"attempted"`
	Inserted  int          `yaml:"inserted" json:"inserted"`
	BulkError string       `yaml:"bulk_error,omitempty" json:"bulk_error,omitempty"`
	Failures  []RowFailure `yaml:"failures,omitempty" json:"failures,omitempty"`
}

// Partial reports whether some rows were not inserted.
func (r LoadResult) Partial() bool { return r.Inserted < r.Attempted }

const (
	bulkSavepoint = "moviedw_bulk"
	rowSavepoint  = "moviedw_row"
)

// WriteTwoTier inserts rows atomically in bulk under a savepoint. If the
// bulk write fails, it rolls back to the savepoint and retries each row
// under its own savepoint, skipping rows that fail and recording why.
//
// Only savepoint handling errors (or ctx cancellation) are returned as
// errors: the transaction is unusable after those.
func WriteTwoTier(ctx context.Context, w RowWriter, table string, columns []string, rows [][]any) (LoadResult, error) {
	res := LoadResult{Table: table, Mode: ModeNoRows, Attempted: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}

	if err := w.Savepoint(ctx, bulkSavepoint); err != nil {
		return res, fmt.Errorf("storage: %s: savepoint: %w", table, err)
	}
	bulkErr := w.InsertRows(ctx, table, columns, rows)
	metrics.AddBatch(table, string(ModeBulk), bulkErr)
	if bulkErr == nil {
		if err := w.Release(ctx, bulkSavepoint); err != nil {
			return res, fmt.Errorf("storage: %s: release: %w", table, err)
		}
		res.Mode = ModeBulk
		res.Inserted = len(rows)
		return res, nil
	}
	if err := w.RollbackTo(ctx, bulkSavepoint); err != nil {
		return res, fmt.Errorf("storage: %s: rollback bulk (%v): %w", table, bulkErr, err)
	}

	res.Mode = ModeRowed
	res.BulkError = bulkErr.Error()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.Savepoint(ctx, rowSavepoint); err != nil {
			return res, fmt.Errorf("storage: %s: row %d savepoint: %w", table, i, err)
		}
		err := w.InsertRows(ctx, table, columns, [][]any{row})
		metrics.AddBatch(table, string(ModeRowed), err)
		if err != nil {
			if rbErr := w.RollbackTo(ctx, rowSavepoint); rbErr != nil {
				return res, fmt.Errorf("storage: %s: row %d rollback (%v): %w", table, i, err, rbErr)
			}
			res.Failures = append(res.Failures, RowFailure{Index: i, Values: row, Reason: err.Error()})
			continue
		}
		if err := w.Release(ctx, rowSavepoint); err != nil {
			return res, fmt.Errorf("storage: %s: row %d release: %w", table, i, err)
		}
		res.Inserted++
	}
	return res, nil
}

// ChunkRows splits rows so that no statement binds more than maxParams
// parameters or more than maxRows rows. maxRows <= 0 means unbounded.
func ChunkRows(rows [][]any, columns, maxParams, maxRows int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := len(rows)
	if columns > 0 && maxParams > 0 {
		per = maxParams / columns
	}
	if maxRows > 0 && per > maxRows {
		per = maxRows
	}
	if per < 1 {
		per = 1
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
