// Package transformer holds the in-memory tabular form rows take between
// parsing, cleaning and loading, plus table-wide transforms such as dedupe.
package transformer

import "fmt"

// Row is a positional row aligned to its Table's Columns.
type Row struct {
	V    []any
	Line int // 1-based source record number, if known
}

// Table is an ordered set of columns and rows. Cell values are nil (missing),
// string (raw text) or a coerced scalar (int64, float64).
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Missing returns the names in want that are not columns of t.
func (t Table) Missing(want []string) []string {
	var out []string
	for _, w := range want {
		if t.Index(w) < 0 {
			out = append(out, w)
		}
	}
	return out
}

// Project returns a table with exactly cols, in that order.
// Every col must exist in t.
func (t Table) Project(cols []string) (Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return Table{}, fmt.Errorf("project: missing column %q", c)
		}
	}
	out := Table{Columns: append([]string(nil), cols...), Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		v := make([]any, len(cols))
		for i, si := range idx {
			if si < len(r.V) {
				v[i] = r.V[si]
			}
		}
		out.Rows = append(out.Rows, Row{V: v, Line: r.Line})
	}
	return out, nil
}

// Filter keeps rows for which keep returns true and reports how many were dropped.
func (t Table) Filter(keep func(Row) bool) (Table, int) {
	out := Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, len(t.Rows) - len(out.Rows)
}

// Map applies fn to every row in place.
func (t Table) Map(fn func(*Row)) {
	for i := range t.Rows {
		fn(&t.Rows[i])
	}
}

// Values returns the row values as a [][]any suitable for bulk inserts.
func (t Table) Values() [][]any {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.V
	}
	return out
}

// NullCounts counts nil cells per column.
func (t Table) NullCounts() map[string]int {
	out := make(map[string]int, len(t.Columns))
	for _, c := range t.Columns {
		out[c] = 0
	}
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			if i >= len(r.V) || r.V[i] == nil {
				out[c]++
			}
		}
	}
	return out
}
