package web

import (
	"fmt"
	"strconv"
	"time"

	"moviedw/internal/storage"
)

// Mart is a read-only analytical page backed by one of the warehouse views.
type Mart struct {
	Slug        string
	Title       string
	Description string
	SQL         string
}

func rankedMart(view string, limit int) string {
	return fmt.Sprintf(`SELECT genero, titulo, ano_lancamento, nota_media, total_avaliacoes, ranking
FROM %s
WHERE ranking <= %d
ORDER BY genero, ranking`, view, limit)
}

var marts = []Mart{
	{
		Slug:        "top-filmes-por-genero",
		Title:       "Top 10 filmes por gênero",
		Description: "Filmes mais bem avaliados em cada gênero.",
		SQL:         rankedMart(storage.ViewTopMoviesByGenre, 10),
	},
	{
		Slug:        "top-usuarios-avaliacoes",
		Title:       "Top 5 usuários por avaliações",
		Description: "Usuários que mais avaliaram filmes.",
		SQL: `SELECT id, nome, email, total_avaliacoes, nota_media_dada, primeira_avaliacao, ultima_avaliacao
FROM ` + storage.ViewTopRaters + `
ORDER BY total_avaliacoes DESC, nota_media_dada DESC
LIMIT 5`,
	},
	{
		Slug:        "piores-filmes-por-genero",
		Title:       "Piores 10 filmes por gênero",
		Description: "Filmes com as piores notas em cada gênero.",
		SQL:         rankedMart(storage.ViewWorstMoviesByGenre, 10),
	},
	{
		Slug:        "top-filmes-populares",
		Title:       "Top 5 filmes populares por gênero",
		Description: "Os cinco filmes mais bem avaliados de cada gênero.",
		SQL:         rankedMart(storage.ViewTopMoviesByGenre, 5),
	},
	{
		Slug:        "numero-filmes-avaliados",
		Title:       "Filmes avaliados pelos usuários mais ativos",
		Description: "Quantos filmes distintos cada usuário mais ativo avaliou.",
		SQL: `SELECT u.nome, u.email, u.total_avaliacoes,
       COUNT(DISTINCT a.filme_titulo) AS filmes_unicos_avaliados,
       u.nota_media_dada, u.primeira_avaliacao, u.ultima_avaliacao
FROM ` + storage.ViewTopRaters + ` u
JOIN avaliacoes a ON u.id = a.user_id
GROUP BY u.id, u.nome, u.email, u.total_avaliacoes, u.nota_media_dada,
         u.primeira_avaliacao, u.ultima_avaliacao
ORDER BY u.total_avaliacoes DESC
LIMIT 10`,
	},
	{
		Slug:        "top-filmes-odiados",
		Title:       "Top 5 filmes odiados por gênero",
		Description: "Os cinco filmes com as piores notas de cada gênero.",
		SQL:         rankedMart(storage.ViewWorstMoviesByGenre, 5),
	},
	{
		Slug:        "avaliacoes-por-pais",
		Title:       "Avaliações por país",
		Description: "Volume e nota média das avaliações por país do usuário.",
		SQL: `SELECT pais, total_avaliacoes, total_usuarios, nota_media_pais, primeira_avaliacao, ultima_avaliacao
FROM ` + storage.ViewRatingsByCountry + `
ORDER BY total_avaliacoes DESC`,
	},
	{
		Slug:        "nota-media-por-genero",
		Title:       "Nota média por gênero",
		Description: "Nota média, mínima e máxima dada a cada gênero.",
		SQL: `SELECT genero, total_avaliacoes, nota_media_genero, usuarios_avaliaram, filmes_avaliados, nota_minima, nota_maxima
FROM ` + storage.ViewAverageByGenre + `
ORDER BY nota_media_genero DESC`,
	},
}

// Marts returns every data mart in menu order.
func Marts() []Mart {
	out := make([]Mart, len(marts))
	copy(out, marts)
	return out
}

// MartBySlug looks up a data mart.
func MartBySlug(slug string) (Mart, bool) {
	for _, m := range marts {
		if m.Slug == slug {
			return m, true
		}
	}
	return Mart{}, false
}

// Table is a rendered query result: every cell already formatted.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}
