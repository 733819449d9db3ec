package transformer

import (
	"reflect"
	"testing"
)

func sample() Table {
	return Table{
		Columns: []string{"user_id", "filme_titulo", "nota"},
		Rows: []Row{
			{V: []any{"1", "Matrix", "9"}, Line: 2},
			{V: []any{"2", "Alien", nil}, Line: 3},
			{V: []any{"1", "Matrix", "9"}, Line: 4},
			{V: []any{"1", "Matrix", "8"}, Line: 5},
		},
	}
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	t.Parallel()

	out, dropped := Dedupe(sample())
	if dropped != 1 {
		t.Fatalf("dropped=%d, want 1", dropped)
	}
	var lines []int
	for _, r := range out.Rows {
		lines = append(lines, r.Line)
	}
	if !reflect.DeepEqual(lines, []int{2, 3, 5}) {
		t.Fatalf("lines=%v", lines)
	}

	again, dropped2 := Dedupe(out)
	if dropped2 != 0 || again.Len() != out.Len() {
		t.Fatalf("dedupe not idempotent: dropped=%d len=%d", dropped2, again.Len())
	}
}

func TestDedupe_NilDiffersFromEmpty(t *testing.T) {
	t.Parallel()

	tbl := Table{Columns: []string{"a"}, Rows: []Row{{V: []any{nil}}, {V: []any{""}}}}
	if _, dropped := Dedupe(tbl); dropped != 0 {
		t.Fatalf("nil and empty string must not collide")
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	out, err := sample().Project([]string{"nota", "user_id"})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !reflect.DeepEqual(out.Rows[0].V, []any{"9", "1"}) || out.Rows[0].Line != 2 {
		t.Fatalf("row0=%+v", out.Rows[0])
	}
	if _, err := sample().Project([]string{"nope"}); err == nil {
		t.Fatalf("expected missing column error")
	}
}

func TestFilterAndNullCounts(t *testing.T) {
	t.Parallel()

	tbl := sample()
	if got := tbl.NullCounts(); got["nota"] != 1 || got["user_id"] != 0 {
		t.Fatalf("NullCounts=%v", got)
	}
	out, dropped := tbl.Filter(func(r Row) bool { return r.V[2] != nil })
	if dropped != 1 || out.Len() != 3 {
		t.Fatalf("Filter dropped=%d len=%d", dropped, out.Len())
	}
	if got := tbl.Missing([]string{"nota", "comentario"}); !reflect.DeepEqual(got, []string{"comentario"}) {
		t.Fatalf("Missing=%v", got)
	}
	if len(tbl.Values()) != 4 {
		t.Fatalf("Values len")
	}
}
