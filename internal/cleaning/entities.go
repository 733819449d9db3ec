package cleaning

import (
	"strings"

	"moviedw/internal/schema"
	"moviedw/internal/transformer/builtin"
)

// Defaults are the tunable fill values used by the entity configs.
type Defaults struct {
	Score         float64
	Comment       string
	MaxCommentLen int
}

// DefaultDefaults matches the values the warehouse has always been loaded with.
func DefaultDefaults() Defaults {
	return Defaults{
		Score:         5.0,
		Comment:       "Sem comentário",
		MaxCommentLen: schema.MaxCommentLen,
	}
}

// movieRenames maps canonical raw headers onto filmes columns.
var movieRenames = map[string]string{
	"titulo":        "titulo",
	"title":         "titulo",
	"filme":         "titulo",
	"anolancamento": "ano_lancamento",
	"ano":           "ano_lancamento",
	"releaseyear":   "ano_lancamento",
	"year":          "ano_lancamento",
	"genero":        "genero",
	"genre":         "genero",
	"notaimdb":      "nota_imdb",
	"imdbrating":    "nota_imdb",
	"imdb":          "nota_imdb",
}

var userRenames = map[string]string{
	"nome":    "nome",
	"name":    "nome",
	"email":   "email",
	"mail":    "email",
	"genero":  "genero",
	"gender":  "genero",
	"sexo":    "genero",
	"pais":    "pais",
	"country": "pais",
}

var ratingRenames = map[string]string{
	"userid":      "user_id",
	"usuarioid":   "user_id",
	"idusuario":   "user_id",
	"filmetitulo": "filme_titulo",
	"titulofilme": "filme_titulo",
	"movietitle":  "filme_titulo",
	"filme":       "filme_titulo",
	"nota":        "nota",
	"score":       "nota",
	"rating":      "nota",
	"comentario":  "comentario",
	"comment":     "comentario",
}

// Movies returns the cleaning config for the movie catalog.
func Movies() Config {
	return Config{
		Entity:        schema.Movies,
		Rename:        movieRenames,
		NormalizeText: []string{"titulo"},
		Rules: []Rule{
			{Name: "imdb_out_of_range", Keep: func(r Record) bool {
				f, ok := builtin.ToFloat(r.Get("nota_imdb"))
				return ok && f >= 0 && f <= 10
			}},
			{Name: "year_out_of_range", Keep: func(r Record) bool {
				n, ok := builtin.ToInt(r.Get("ano_lancamento"))
				return ok && n >= 1870 && n <= 2100
			}},
		},
	}
}

// Users returns the cleaning config for users.
func Users() Config {
	return Config{
		Entity:        schema.Users,
		Rename:        userRenames,
		NormalizeText: []string{"nome", "pais"},
		Lowercase:     []string{"email"},
		Rules: []Rule{
			{Name: "email_without_at", Keep: func(r Record) bool {
				s, _ := r.Get("email").(string)
				return strings.Contains(s, "@")
			}},
		},
	}
}

// Ratings returns the cleaning config for ratings. A missing score becomes
// d.Score; a missing user id becomes 0 and is then dropped by the positivity
// rule; a missing comment becomes d.Comment.
func Ratings(d Defaults) Config {
	cfg := Config{
		Entity: schema.Ratings,
		Rename: ratingRenames,
		Defaults: map[string]any{
			"user_id":    int64(0),
			"nota":       d.Score,
			"comentario": d.Comment,
		},
		Rules: []Rule{
			{Name: "score_out_of_range", Keep: func(r Record) bool {
				f, ok := r.Get("nota").(float64)
				return ok && f >= 0 && f <= 10
			}},
			{Name: "user_id_not_positive", Keep: func(r Record) bool {
				n, ok := r.Get("user_id").(int64)
				return ok && n > 0
			}},
		},
	}
	if d.MaxCommentLen > 0 {
		cfg.MaxLen = map[string]int{"comentario": d.MaxCommentLen}
	}
	return cfg
}

// ForEntity returns the config for an entity name ("movies", "users",
// "ratings" or the table names).
func ForEntity(name string, d Defaults) (Config, bool) {
	e, ok := schema.ByName(name)
	if !ok {
		return Config{}, false
	}
	switch e.Name {
	case schema.Movies.Name:
		return Movies(), true
	case schema.Users.Name:
		return Users(), true
	case schema.Ratings.Name:
		return Ratings(d), true
	}
	return Config{}, false
}
