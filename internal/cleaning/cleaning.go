// Package cleaning turns raw entity tables into clean, typed tables.
//
// Clean is pure: it takes a table and a Config and returns the cleaned table
// with a Summary, touching no files. Stage wraps it with candidate-path I/O.
//
// Steps run in a fixed order:
//
//  1. normalize and rename columns
//  2. drop exact duplicate rows
//  3. count null cells
//  4. fill defaults and coerce typed fields
//  5. normalize free text and lowercase fields
//  6. apply validation filters
//  7. truncate over-long text
//
// Filling, trimming and accent stripping can turn distinct raw rows into
// equal ones, so a last exact-duplicate pass runs after step 7.
package cleaning

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"moviedw/internal/normalize"
	"moviedw/internal/schema"
	"moviedw/internal/transformer"
	"moviedw/internal/transformer/builtin"
)

// ErrMissingColumn is returned when a required column is absent after renaming.
var ErrMissingColumn = errors.New("missing required column")

// Record is a read-only view of one row keyed by field name.
type Record struct {
	cols []string
	v    []any
}

// Get returns the value of field name, or nil.
func (r Record) Get(name string) any {
	for i, c := range r.cols {
		if c == name {
			return r.v[i]
		}
	}
	return nil
}

// Rule is a named row filter. Rows for which Keep returns false are dropped
// and counted under Name.
type Rule struct {
	Name string
	Keep func(Record) bool
}

// Config describes how one entity is cleaned.
type Config struct {
	Entity schema.Entity

	// Rename maps canonical column names (see normalize.ColumnName) to
	// entity field names.
	Rename map[string]string

	// Defaults fill missing values before coercion.
	Defaults map[string]any

	// NormalizeText lists fields whose text is accent-stripped.
	NormalizeText []string

	// Lowercase lists fields lowercased after trimming.
	Lowercase []string

	// Rules run after required-field checks.
	Rules []Rule

	// MaxLen overrides the schema length limit per field.
	MaxLen map[string]int
}

// Summary reports what Clean did.
type Summary struct {
	Entity     string         `yaml:"entity" json:"entity"`
	Read       int            `yaml:"read" json:"read"`
	Duplicates int            `yaml:"duplicates" json:"duplicates"`
	Nulls      map[string]int `yaml:"nulls" json:"nulls"`
	Rejected   map[string]int `yaml:"rejected,omitempty" json:"rejected,omitempty"`
	Truncated  int            `yaml:"truncated" json:"truncated"`
	Kept       int            `yaml:"kept" json:"kept"`
}

// RejectedTotal sums rejections across all reasons.
func (s Summary) RejectedTotal() int {
	n := 0
	for _, v := range s.Rejected {
		n += v
	}
	return n
}

// NullTotal sums null cells across all columns.
func (s Summary) NullTotal() int {
	n := 0
	for _, v := range s.Nulls {
		n += v
	}
	return n
}

// String renders the summary as a single log-friendly line.
func (s Summary) String() string {
	reasons := make([]string, 0, len(s.Rejected))
	for k, v := range s.Rejected {
		reasons = append(reasons, fmt.Sprintf("%s:%d", k, v))
	}
	sort.Strings(reasons)
	return fmt.Sprintf("entity=%s read=%d duplicates=%d nulls=%d rejected=%d [%s] truncated=%d kept=%d",
		s.Entity, s.Read, s.Duplicates, s.NullTotal(), s.RejectedTotal(), strings.Join(reasons, " "), s.Truncated, s.Kept)
}

// Clean applies cfg to in. The output columns are exactly
// cfg.Entity.Columns(), in order.
func Clean(in transformer.Table, cfg Config) (transformer.Table, Summary, error) {
	e := cfg.Entity
	sum := Summary{Entity: e.Name, Read: in.Len(), Rejected: map[string]int{}}

	// 1. columns
	cols := make([]string, len(in.Columns))
	for i, c := range in.Columns {
		cols[i] = normalize.ColumnName(c)
	}
	t := transformer.Table{Columns: normalize.Rename(cols, cfg.Rename), Rows: in.Rows}

	if missing := t.Missing(e.Required()); len(missing) > 0 {
		return transformer.Table{}, sum, fmt.Errorf("%s: %w: %s (have %s)",
			e.Name, ErrMissingColumn, strings.Join(missing, ", "), strings.Join(t.Columns, ", "))
	}
	t = withOptionalColumns(t, e.Columns())

	// 2. duplicates
	t, sum.Duplicates = transformer.Dedupe(t)

	// 3. nulls
	sum.Nulls = t.NullCounts()

	t, err := t.Project(e.Columns())
	if err != nil {
		return transformer.Table{}, sum, fmt.Errorf("%s: %w", e.Name, err)
	}

	// 4 + 5. fill, coerce, normalize
	fields := make([]schema.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i], _ = e.Field(c)
	}
	norm := toSet(cfg.NormalizeText)
	lower := toSet(cfg.Lowercase)
	bad := make([]string, len(t.Rows))
	for ri := range t.Rows {
		r := &t.Rows[ri]
		for i, f := range fields {
			v := r.V[i]
			if blank(v) {
				if d, ok := cfg.Defaults[f.Name]; ok {
					v = d
				}
			}
			cv, ok := coerce(v, f.Type)
			if !ok && bad[ri] == "" {
				bad[ri] = "invalid_" + f.Name
			}
			if s, isStr := cv.(string); isStr {
				if norm[f.Name] {
					s = normalize.Text(s)
				}
				if lower[f.Name] {
					s = strings.ToLower(s)
				}
				cv = s
				if s == "" {
					cv = nil
				}
			}
			r.V[i] = cv
		}
	}
	next := 0
	t, _ = t.Filter(func(transformer.Row) bool {
		reason := bad[next]
		next++
		if reason != "" {
			sum.Rejected[reason]++
			return false
		}
		return true
	})

	// 6. validation
	for _, f := range fields {
		if !f.Required {
			continue
		}
		idx := t.Index(f.Name)
		var n int
		t, n = t.Filter(func(r transformer.Row) bool { return r.V[idx] != nil })
		if n > 0 {
			sum.Rejected["missing_"+f.Name] += n
		}
	}
	for _, rule := range cfg.Rules {
		var n int
		t, n = t.Filter(func(r transformer.Row) bool {
			return rule.Keep(Record{cols: t.Columns, v: r.V})
		})
		if n > 0 {
			sum.Rejected[rule.Name] += n
		}
	}
	for i, f := range fields {
		limit := maxLen(cfg, f)
		if limit <= 0 || f.Truncate {
			continue
		}
		idx := i
		var n int
		t, n = t.Filter(func(r transformer.Row) bool {
			s, ok := r.V[idx].(string)
			return !ok || runeLen(s) <= limit
		})
		if n > 0 {
			sum.Rejected["too_long_"+f.Name] += n
		}
	}

	// 7. truncation
	for i, f := range fields {
		limit := maxLen(cfg, f)
		if limit <= 0 || !f.Truncate {
			continue
		}
		idx := i
		t.Map(func(r *transformer.Row) {
			s, ok := r.V[idx].(string)
			if !ok {
				return
			}
			if cut, did := truncateRunes(s, limit); did {
				r.V[idx] = cut
				sum.Truncated++
			}
		})
	}

	var late int
	t, late = transformer.Dedupe(t)
	sum.Duplicates += late

	sum.Kept = t.Len()
	return t, sum, nil
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// withOptionalColumns appends nil-valued columns for optional fields the
// source does not carry, so defaults can fill them.
func withOptionalColumns(t transformer.Table, want []string) transformer.Table {
	missing := t.Missing(want)
	if len(missing) == 0 {
		return t
	}
	out := transformer.Table{
		Columns: append(append([]string(nil), t.Columns...), missing...),
		Rows:    make([]transformer.Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		v := make([]any, len(out.Columns))
		copy(v, r.V)
		out.Rows[i] = transformer.Row{V: v, Line: r.Line}
	}
	return out
}

func coerce(v any, typ schema.Type) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch typ {
	case schema.Integer:
		n, ok := builtin.ToInt(v)
		if !ok {
			return nil, false
		}
		return n, true
	case schema.Real:
		f, ok := builtin.ToFloat(v)
		if !ok {
			return nil, false
		}
		return f, true
	default:
		switch s := v.(type) {
		case string:
			return strings.TrimSpace(s), true
		default:
			return strings.TrimSpace(fmt.Sprint(s)), true
		}
	}
}

func maxLen(cfg Config, f schema.Field) int {
	if n, ok := cfg.MaxLen[f.Name]; ok {
		return n
	}
	return f.MaxLen
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func truncateRunes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}

func toSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}
