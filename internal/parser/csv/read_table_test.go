package csv

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"moviedw/internal/config"
	"moviedw/internal/transformer"
)

func TestReadTable_HeaderAndCells(t *testing.T) {
	t.Parallel()

	in := "\uFEFF User ID ,Filme Título,Nota \n" +
		"1, Matrix ,9\n" +
		"2,,\n"

	tbl, err := ReadTable(context.Background(), strings.NewReader(in), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"User ID", "Filme Título", "Nota"}) {
		t.Fatalf("columns=%q", tbl.Columns)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d, want 2", tbl.Len())
	}
	if !reflect.DeepEqual(tbl.Rows[0].V, []any{"1", "Matrix", "9"}) {
		t.Fatalf("row0=%v", tbl.Rows[0].V)
	}
	if tbl.Rows[1].V[1] != nil || tbl.Rows[1].V[2] != nil {
		t.Fatalf("empty cells must be nil: %v", tbl.Rows[1].V)
	}
	if tbl.Rows[0].Line != 2 || tbl.Rows[1].Line != 3 {
		t.Fatalf("lines=%d,%d", tbl.Rows[0].Line, tbl.Rows[1].Line)
	}
}

func TestReadTable_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	in := "a,b\n" +
		"1,2\n" +
		"1,2,3\n" + // too many fields
		"x\n" + // too few: padded
		"\"bad\"quote,4\n" + // parse error without lazy quotes
		"5,6\n"

	var skipped []int
	tbl, err := ReadTable(context.Background(), strings.NewReader(in), config.Options{}, func(line int, err error) {
		skipped = append(skipped, line)
	})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("rows=%d, want 3 (%v)", tbl.Len(), tbl.Rows)
	}
	if len(skipped) != 2 || skipped[0] != 3 || skipped[1] != 5 {
		t.Fatalf("skipped lines=%v, want [3 5]", skipped)
	}
	if tbl.Rows[1].V[0] != "x" || tbl.Rows[1].V[1] != nil {
		t.Fatalf("short row=%v", tbl.Rows[1].V)
	}
}

func TestReadTable_OptionsAndErrors(t *testing.T) {
	t.Parallel()

	tbl, err := ReadTable(context.Background(), strings.NewReader("n;m\n1;2\n"), config.Options{
		"comma":      ";",
		"header_map": map[string]any{"n": "nome"},
	}, nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Columns[0] != "nome" || tbl.Rows[0].V[1] != "2" {
		t.Fatalf("tbl=%+v", tbl)
	}

	if _, err := ReadTable(context.Background(), strings.NewReader(""), nil, nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err=%v, want ErrEmptyInput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadTable(ctx, strings.NewReader("a\n1\n"), nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestWriteTable_RoundTrip(t *testing.T) {
	t.Parallel()

	in := transformer.Table{
		Columns: []string{"user_id", "filme_titulo", "nota", "comentario"},
		Rows: []transformer.Row{
			{V: []any{int64(1), "Matrix, The", 5.0, "Sem comentário"}},
			{V: []any{int64(2), "Alien", 7.5, nil}},
		},
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, in); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	want := "user_id,filme_titulo,nota,comentario\n1,\"Matrix, The\",5.0,Sem comentário\n2,Alien,7.5,\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}

	back, err := ReadTable(context.Background(), &buf, nil, nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if back.Rows[0].V[1] != "Matrix, The" || back.Rows[1].V[3] != nil {
		t.Fatalf("round trip rows=%v", back.Rows)
	}
}
