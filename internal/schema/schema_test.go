package schema

import (
	"strings"
	"testing"
)

func TestColumns_ExcludeGenerated(t *testing.T) {
	t.Parallel()

	got := strings.Join(Ratings.Columns(), ",")
	if got != "user_id,filme_titulo,nota,comentario" {
		t.Fatalf("ratings columns=%q", got)
	}
	if Ratings.Index("data_avaliacao") != -1 {
		t.Fatalf("generated field must not have a CSV index")
	}
	if Ratings.Index("nota") != 2 {
		t.Fatalf("nota index=%d", Ratings.Index("nota"))
	}
}

func TestRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		e    Entity
		want string
	}{
		{Movies, "titulo,ano_lancamento,genero,nota_imdb"},
		{Users, "nome,email,genero,pais"},
		{Ratings, "user_id,filme_titulo,nota"},
	}
	for _, tc := range tests {
		if got := strings.Join(tc.e.Required(), ","); got != tc.want {
			t.Fatalf("%s required=%q, want %q", tc.e.Name, got, tc.want)
		}
	}
}

func TestAll_DependencyOrder(t *testing.T) {
	t.Parallel()

	all := All()
	if len(all) != 3 || all[0].Table != "filmes" || all[1].Table != "usuarios" || all[2].Table != "avaliacoes" {
		t.Fatalf("unexpected order: %v", all)
	}
	if e, ok := ByName("avaliacoes"); !ok || e.Name != "ratings" {
		t.Fatalf("ByName(table) failed")
	}
	if _, ok := ByName("nope"); ok {
		t.Fatalf("ByName(nope) should fail")
	}
	if f, ok := Ratings.Field("comentario"); !ok || !f.Truncate || f.MaxLen != 500 {
		t.Fatalf("comentario field=%+v", f)
	}
}
