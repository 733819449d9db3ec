// Package warehouse loads the clean datasets into a storage backend and
// rebuilds the analytical views.
package warehouse

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"moviedw/internal/config"
	"moviedw/internal/metrics"
	"moviedw/internal/schema"
	"moviedw/internal/storage"
)

// Logger is the minimal logging interface used by the loader.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Loader performs a full replace of the warehouse from clean files.
type Loader struct {
	Warehouse storage.Warehouse

	// LoadDirs are the candidate directories of the clean files, in order.
	LoadDirs []string
	Parser   config.Options

	SkipViews bool
	Logger    Logger
}

// Remap records one rating whose user id was rewritten.
type Remap struct {
	Row  int   `yaml:"row" json:"row"`
	From int64 `yaml:"from" json:"from"`
	To   int64 `yaml:"to" json:"to"`
}

// Report summarizes a load.
type Report struct {
	Inputs map[string]string `yaml:"inputs" json:"inputs"`

	Movies  storage.LoadResult `yaml:"movies" json:"movies"`
	Users   storage.LoadResult `yaml:"users" json:"users"`
	Ratings storage.LoadResult `yaml:"ratings" json:"ratings"`

	// Skipped counts rows dropped while converting the clean files.
	Skipped map[string]int `yaml:"skipped,omitempty" json:"skipped,omitempty"`

	RatingsSkipped bool    `yaml:"ratings_skipped,omitempty" json:"ratings_skipped,omitempty"`
	Remaps         []Remap `yaml:"remaps,omitempty" json:"remaps,omitempty"`

	Views  []string         `yaml:"views,omitempty" json:"views,omitempty"`
	Counts map[string]int64 `yaml:"counts" json:"counts"`
}

// Partial reports whether any table lost rows in the row-by-row fallback.
func (r Report) Partial() bool {
	return r.Movies.Partial() || r.Users.Partial() || r.Ratings.Partial()
}

// Run reads every clean dataset, then in one transaction truncates the
// tables and loads movies, users and ratings. Views are replaced after
// commit. Reading happens first so a bad file leaves the warehouse as is.
func (l Loader) Run(ctx context.Context) (rep Report, err error) {
	start := time.Now()
	logf := l.logger()
	defer func() { metrics.RecordStep("load", start, err) }()

	rep.Inputs = map[string]string{}
	rep.Skipped = map[string]int{}

	sets := make(map[string]Dataset, 3)
	for _, e := range schema.All() {
		ds, err := ReadDataset(ctx, e, l.LoadDirs, l.Parser, logf)
		if err != nil {
			return rep, err
		}
		sets[e.Name] = ds
		rep.Inputs[e.Name] = ds.Path
		if ds.Skipped > 0 {
			rep.Skipped[e.Name] = ds.Skipped
		}
		logf("stage=load entity=%s input=%s rows=%d columns=%v skipped=%d malformed=%d",
			e.Name, ds.Path, len(ds.Rows), ds.Columns, ds.Skipped, ds.Malformed)
	}
	logf("stage=load entity=users nulls=%s", formatCounts(sets[schema.Users.Name].Nulls))

	if err := l.Warehouse.EnsureTables(ctx, storage.Tables()); err != nil {
		return rep, fmt.Errorf("warehouse: ensure tables: %w", err)
	}

	if err := l.replace(ctx, sets, &rep, logf); err != nil {
		return rep, err
	}

	if !l.SkipViews {
		views := storage.Views()
		if err := l.Warehouse.EnsureViews(ctx, views); err != nil {
			return rep, fmt.Errorf("warehouse: ensure views: %w", err)
		}
		for _, v := range views {
			rep.Views = append(rep.Views, v.Name)
		}
		logf("stage=load views=%d", len(views))
	}

	rep.Counts = map[string]int64{}
	for _, e := range schema.All() {
		n, err := l.Warehouse.CountRows(ctx, e.Table)
		if err != nil {
			return rep, fmt.Errorf("warehouse: %w", err)
		}
		rep.Counts[e.Table] = n
	}
	logf("stage=load counts=%s partial=%t duration=%s",
		formatCounts(rep.Counts), rep.Partial(), time.Since(start).Truncate(time.Millisecond))
	return rep, nil
}

func (l Loader) replace(ctx context.Context, sets map[string]Dataset, rep *Report, logf func(string, ...any)) (err error) {
	tx, err := l.Warehouse.Begin(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := tx.Truncate(ctx, schema.Ratings.Table, schema.Users.Table, schema.Movies.Table); err != nil {
		return fmt.Errorf("warehouse: %w", err)
	}

	movies := sets[schema.Movies.Name]
	if rep.Movies, err = l.load(ctx, tx, movies, logf); err != nil {
		return err
	}
	users := sets[schema.Users.Name]
	if rep.Users, err = l.load(ctx, tx, users, logf); err != nil {
		return err
	}

	ratings := sets[schema.Ratings.Name]
	n, err := tx.CountRows(ctx, schema.Users.Table)
	if err != nil {
		return fmt.Errorf("warehouse: %w", err)
	}
	if n == 0 {
		rep.RatingsSkipped = true
		rep.Ratings = storage.LoadResult{Table: schema.Ratings.Table, Mode: storage.ModeNoRows, Attempted: len(ratings.Rows)}
		logf("stage=load entity=ratings warning: no users loaded, skipping %d ratings", len(ratings.Rows))
	} else {
		ids, err := tx.IDs(ctx, schema.Users.Table, "id")
		if err != nil {
			return fmt.Errorf("warehouse: %w", err)
		}
		rep.Remaps = RemapUserIDs(ratings.Rows, schema.Ratings.Index("user_id"), ids)
		for _, m := range rep.Remaps {
			logf("stage=load entity=ratings remap row=%d user_id=%d->%d", m.Row, m.From, m.To)
		}
		if len(rep.Remaps) > 0 {
			metrics.AddRecords("ratings_remapped", len(rep.Remaps))
			logf("stage=load entity=ratings warning: remapped=%d user ids onto %d loaded users", len(rep.Remaps), len(ids))
		}
		if rep.Ratings, err = l.load(ctx, tx, ratings, logf); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("warehouse: commit: %w", err)
	}
	return nil
}

func (l Loader) load(ctx context.Context, tx storage.Tx, ds Dataset, logf func(string, ...any)) (res storage.LoadResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep("load_"+ds.Entity.Name, start, err) }()

	res, err = tx.Load(ctx, ds.Entity.Table, ds.Columns, ds.Rows)
	if err != nil {
		return res, fmt.Errorf("warehouse: load %s: %w", ds.Entity.Table, err)
	}
	if res.BulkError != "" {
		logf("stage=load table=%s bulk insert failed, retrying row by row: %s", res.Table, res.BulkError)
	}
	for _, f := range res.Failures {
		logf("stage=load table=%s row=%d values=%v err=%s", res.Table, f.Index, f.Values, f.Reason)
	}
	metrics.AddRecords(ds.Entity.Name+"_loaded", res.Inserted)
	metrics.AddRecords(ds.Entity.Name+"_failed", len(res.Failures))

	logf("stage=load table=%s mode=%s inserted=%d/%d duration=%s",
		res.Table, res.Mode, res.Inserted, res.Attempted, time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

// RemapUserIDs folds rating user ids onto the loaded users when the
// largest rating user id exceeds the number of users: id becomes
// ids[(id-1) mod n], i.e. ((id-1) mod n)+1 when users were keyed 1..n.
// rows are rewritten in place; only changed ids are returned. Missing and
// non-positive ids are left alone.
func RemapUserIDs(rows [][]any, col int, ids []int64) []Remap {
	n := int64(len(ids))
	if n == 0 || col < 0 {
		return nil
	}

	var maxID int64
	for _, r := range rows {
		if id, ok := r[col].(int64); ok && id > maxID {
			maxID = id
		}
	}
	if maxID <= n {
		return nil
	}

	var out []Remap
	for i, r := range rows {
		id, ok := r[col].(int64)
		if !ok || id < 1 {
			continue
		}
		to := ids[(id-1)%n]
		if to == id {
			continue
		}
		r[col] = to
		out = append(out, Remap{Row: i, From: id, To: to})
	}
	return out
}

func formatCounts[V int | int64](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s:%d", k, m[k])
	}
	return s
}

func (l Loader) logger() func(string, ...any) {
	if l.Logger == nil {
		return log.Printf
	}
	return l.Logger.Printf
}
