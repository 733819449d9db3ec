package transformer

import "moviedw/internal/transformer/builtin"

// Dedupe drops rows whose values exactly match an earlier row across all
// columns. The first occurrence is kept and order is preserved.
func Dedupe(t Table) (Table, int) {
	h := builtin.RowHasher{}
	seen := make(map[string]struct{}, len(t.Rows))
	return t.Filter(func(r Row) bool {
		k := h.Sum(r.V)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}
