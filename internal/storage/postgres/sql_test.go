package postgres

import (
	"strings"
	"testing"

	"moviedw/internal/storage"
	"moviedw/internal/schema"
)

func TestBuildCreateSQL_Ratings(t *testing.T) {
	t.Parallel()

	q, err := buildCreateSQL(storage.TableFor(schema.Ratings))
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS avaliacoes (",
		`"id" serial PRIMARY KEY`,
		`"user_id" integer REFERENCES usuarios(id)`,
		`"nota" decimal(3,1) CHECK (nota >= 0 AND nota <= 10)`,
		`"data_avaliacao" timestamp DEFAULT CURRENT_TIMESTAMP`,
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("DDL missing %q:\n%s", want, q)
		}
	}
}

func TestBuildCreateSQL_Errors(t *testing.T) {
	t.Parallel()

	if _, err := buildCreateSQL(storage.TableSpec{}); err == nil {
		t.Fatalf("expected error for empty table name")
	}
	if _, err := buildCreateSQL(storage.TableSpec{Name: "x"}); err == nil {
		t.Fatalf("expected error for table without columns")
	}
	bad := storage.TableSpec{Name: "x", PrimaryKey: &storage.PrimaryKeySpec{Name: "id"}}
	if _, err := buildCreateSQL(bad); err == nil {
		t.Fatalf("expected error for primary key without type")
	}
}

func TestBuildInsertSQL_PlaceholdersAndArgs(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("filmes", []string{"titulo", "ano_lancamento"}, [][]any{
		{"Matrix", int64(1999)},
		{"Alien", int64(1979)},
	})
	want := `INSERT INTO filmes ("titulo", "ano_lancamento") VALUES ($1, $2), ($3, $4);`
	if q != want {
		t.Fatalf("got  %q\nwant %q", q, want)
	}
	if len(args) != 4 || args[0] != "Matrix" || args[3] != int64(1979) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildTruncateSQL(t *testing.T) {
	t.Parallel()

	got := buildTruncateSQL([]string{"avaliacoes", "usuarios", "filmes"})
	want := "TRUNCATE TABLE avaliacoes, usuarios, filmes RESTART IDENTITY CASCADE;"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuildViewSQL_KeepsOrder(t *testing.T) {
	t.Parallel()

	q := buildViewSQL(storage.Views()[0])
	if !strings.HasPrefix(q, "CREATE OR REPLACE VIEW vw_top_filmes_por_genero AS") {
		t.Fatalf("unexpected prefix: %q", q)
	}
	if !strings.HasSuffix(q, "ORDER BY genero, ranking;") {
		t.Fatalf("expected trailing ORDER BY: %q", q)
	}
}

func TestPgIdent_EscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := pgIdent(`a"b`); got != `"a""b"` {
		t.Fatalf("got %s", got)
	}
}
