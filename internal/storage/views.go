package storage

import "fmt"

// ViewSpec is an analytical view. Select carries no ORDER BY: backends
// that allow ordered views (Postgres, SQLite) append OrderBy, SQL Server
// does not.
type ViewSpec struct {
	Name        string
	Description string
	Select      string
	OrderBy     string
}

// View names exposed to the web layer.
const (
	ViewTopMoviesByGenre   = "vw_top_filmes_por_genero"
	ViewWorstMoviesByGenre = "vw_piores_filmes_por_genero"
	ViewTopRaters          = "vw_top_usuarios_avaliacoes"
	ViewRatingsByCountry   = "vw_avaliacoes_por_pais"
	ViewAverageByGenre     = "vw_nota_media_por_genero"
)

// rankedMovies ranks titles inside each genre by average score (dir), then
// by rating count descending. Title breaks the remaining ties so rankings
// are stable between runs.
func rankedMovies(dir string) string {
	return fmt.Sprintf(`SELECT
    f.genero,
    f.titulo,
    f.ano_lancamento,
    ROUND(AVG(a.nota), 2) AS nota_media,
    COUNT(a.id) AS total_avaliacoes,
    ROW_NUMBER() OVER (
        PARTITION BY f.genero
        ORDER BY AVG(a.nota) %s, COUNT(a.id) DESC, f.titulo ASC
    ) AS ranking
FROM filmes f
INNER JOIN avaliacoes a ON f.titulo = a.filme_titulo
GROUP BY f.genero, f.titulo, f.ano_lancamento
HAVING COUNT(a.id) >= 1`, dir)
}

// Views returns the five analytical views in creation order.
func Views() []ViewSpec {
	return []ViewSpec{
		{
			Name:        ViewTopMoviesByGenre,
			Description: "best rated movies per genre",
			Select:      rankedMovies("DESC"),
			OrderBy:     "genero, ranking",
		},
		{
			Name:        ViewTopRaters,
			Description: "users with the most ratings",
			Select: `SELECT
    u.id,
    u.nome,
    u.email,
    COUNT(a.id) AS total_avaliacoes,
    ROUND(AVG(a.nota), 2) AS nota_media_dada,
    MIN(a.data_avaliacao) AS primeira_avaliacao,
    MAX(a.data_avaliacao) AS ultima_avaliacao
FROM usuarios u
INNER JOIN avaliacoes a ON u.id = a.user_id
GROUP BY u.id, u.nome, u.email`,
			OrderBy: "total_avaliacoes DESC, nota_media_dada DESC",
		},
		{
			Name:        ViewWorstMoviesByGenre,
			Description: "worst rated movies per genre",
			Select:      rankedMovies("ASC"),
			OrderBy:     "genero, ranking",
		},
		{
			Name:        ViewRatingsByCountry,
			Description: "ratings per user country",
			Select: `SELECT
    u.pais,
    COUNT(a.id) AS total_avaliacoes,
    COUNT(DISTINCT u.id) AS total_usuarios,
    ROUND(AVG(a.nota), 2) AS nota_media_pais,
    MIN(a.data_avaliacao) AS primeira_avaliacao,
    MAX(a.data_avaliacao) AS ultima_avaliacao
FROM usuarios u
INNER JOIN avaliacoes a ON u.id = a.user_id
GROUP BY u.pais`,
			OrderBy: "total_avaliacoes DESC, nota_media_pais DESC",
		},
		{
			Name:        ViewAverageByGenre,
			Description: "average score per genre",
			Select: `SELECT
    f.genero,
    COUNT(a.id) AS total_avaliacoes,
    ROUND(AVG(a.nota), 2) AS nota_media_genero,
    COUNT(DISTINCT a.user_id) AS usuarios_avaliaram,
    COUNT(DISTINCT f.titulo) AS filmes_avaliados,
    MIN(a.nota) AS nota_minima,
    MAX(a.nota) AS nota_maxima
FROM filmes f
INNER JOIN avaliacoes a ON f.titulo = a.filme_titulo
GROUP BY f.genero`,
			OrderBy: "nota_media_genero DESC, total_avaliacoes DESC",
		},
	}
}

// OrderedViewSQL renders "<create> <name> AS <select> ORDER BY <order>".
func OrderedViewSQL(create string, v ViewSpec) string {
	q := fmt.Sprintf("%s %s AS\n%s", create, v.Name, v.Select)
	if v.OrderBy != "" {
		q += "\nORDER BY " + v.OrderBy
	}
	return q
}
