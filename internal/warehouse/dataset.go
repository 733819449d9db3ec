package warehouse

import (
	"context"
	"errors"
	"fmt"

	"moviedw/internal/config"
	"moviedw/internal/datasource/file"
	"moviedw/internal/normalize"
	csvparser "moviedw/internal/parser/csv"
	"moviedw/internal/schema"
	"moviedw/internal/transformer"
	"moviedw/internal/transformer/builtin"
)

var (
	// ErrMissingColumn is returned when a clean dataset lacks a column of
	// its entity.
	ErrMissingColumn = errors.New("warehouse: missing column")

	// ErrMissingField is returned when a movie row lacks ano_lancamento,
	// genero or nota_imdb. The movie cleaner never emits such rows, so
	// meeting one means the clean file was produced elsewhere.
	ErrMissingField = errors.New("warehouse: missing field")
)

// normalizedAtLoad lists text fields matched across tables (movie titles);
// they are accent-normalized again so joins in the views line up.
var normalizedAtLoad = map[string]bool{
	"titulo":       true,
	"filme_titulo": true,
}

// Dataset is one clean file converted into insertable rows.
type Dataset struct {
	Entity  schema.Entity
	Path    string
	Columns []string
	Rows    [][]any

	// Skipped counts rows dropped because a value could not be converted.
	Skipped   int
	Malformed int
	Nulls     map[string]int
}

// ReadDataset reads the clean CSV of e from the first existing candidate
// in dirs and converts it to the entity's column order and types.
func ReadDataset(ctx context.Context, e schema.Entity, dirs []string, opt config.Options, logf func(string, ...any)) (Dataset, error) {
	ds := Dataset{Entity: e, Columns: e.Columns()}

	in, path, err := file.Open(file.Candidates(e.CleanFile, dirs...))
	if err != nil {
		return ds, fmt.Errorf("warehouse: %s: %w", e.Name, err)
	}
	defer in.Close()
	ds.Path = path

	t, err := csvparser.ReadTable(ctx, in, opt, func(line int, rerr error) {
		ds.Malformed++
		logf("stage=load entity=%s skip line=%d err=%v", e.Name, line, rerr)
	})
	if errors.Is(err, csvparser.ErrEmptyInput) {
		return ds, fmt.Errorf("%w: %s: %s has no header", ErrMissingColumn, e.Name, path)
	}
	if err != nil {
		return ds, fmt.Errorf("warehouse: %s: read %s: %w", e.Name, path, err)
	}
	if missing := t.Missing(ds.Columns); len(missing) > 0 {
		return ds, fmt.Errorf("%w: %s: %v in %s", ErrMissingColumn, e.Name, missing, path)
	}

	t, err = t.Project(ds.Columns)
	if err != nil {
		return ds, fmt.Errorf("warehouse: %s: %w", e.Name, err)
	}
	ds.Nulls = t.NullCounts()

	ds.Rows = make([][]any, 0, t.Len())
	for _, r := range t.Rows {
		row, err := convertRow(e, ds.Columns, r)
		if errors.Is(err, ErrMissingField) {
			return ds, err
		}
		if err != nil {
			ds.Skipped++
			logf("stage=load entity=%s skip line=%d err=%v", e.Name, r.Line, err)
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// convertRow types the cells of r per field. Missing values stay nil,
// except for movie fields, which are all required in the warehouse.
func convertRow(e schema.Entity, cols []string, r transformer.Row) ([]any, error) {
	out := make([]any, len(cols))
	for i, name := range cols {
		f, _ := e.Field(name)
		v := r.V[i]
		if v == nil {
			if e.Name == schema.Movies.Name && name != "titulo" {
				return nil, fmt.Errorf("%w: %s line %d: %s", ErrMissingField, e.Name, r.Line, name)
			}
			continue
		}

		switch f.Type {
		case schema.Integer:
			n, ok := builtin.ToInt(v)
			if !ok {
				return nil, fmt.Errorf("invalid %s %q", name, v)
			}
			out[i] = n
		case schema.Real:
			x, ok := builtin.ToFloat(v)
			if !ok {
				return nil, fmt.Errorf("invalid %s %q", name, v)
			}
			out[i] = x
		default:
			s := fmt.Sprint(v)
			if normalizedAtLoad[name] {
				s = normalize.Text(s)
			}
			out[i] = s
		}
	}
	return out, nil
}
