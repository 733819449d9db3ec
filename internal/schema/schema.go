// Package schema describes the three warehouse entities once, so the
// cleaners and the loader agree on field order, types and limits.
package schema

// Type is the logical type of a field in a clean dataset.
type Type int

const (
	Text Type = iota
	Integer
	Real
	Timestamp
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Timestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// Field is one column of an entity.
type Field struct {
	Name     string
	Type     Type
	Required bool

	// MaxLen limits text length in runes. 0 means unbounded.
	MaxLen int
	// Truncate cuts over-long text to MaxLen instead of rejecting the row.
	Truncate bool

	// SQLType is the portable column type used for DDL
	// (text, integer, real, varchar(n), decimal(p,s), timestamp).
	SQLType string
	// NotNull adds a NOT NULL constraint in the warehouse.
	NotNull bool
	// References is a foreign key target such as "usuarios(id)".
	References string
	// Check is a column CHECK expression.
	Check string
	// Default is a SQL default expression.
	Default string

	// Generated fields are filled by the warehouse and never appear in CSVs.
	Generated bool
}

// Entity is a warehouse table and its clean CSV layout.
type Entity struct {
	Name      string
	Table     string
	RawFile   string
	CleanFile string
	Fields    []Field
}

// Columns returns the CSV column names in order, excluding generated fields.
func (e Entity) Columns() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Generated {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// Field looks up a field by name.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required returns the names of required CSV fields.
func (e Entity) Required() []string {
	var out []string
	for _, f := range e.Fields {
		if f.Required && !f.Generated {
			out = append(out, f.Name)
		}
	}
	return out
}

// Index returns the position of name within Columns, or -1.
func (e Entity) Index(name string) int {
	for i, c := range e.Columns() {
		if c == name {
			return i
		}
	}
	return -1
}

// MaxCommentLen is the stored length limit of a rating comment and title.
const MaxCommentLen = 500

var (
	Movies = Entity{
		Name:      "movies",
		Table:     "filmes",
		RawFile:   "filmes_raw.csv",
		CleanFile: "filmes_clean_500.csv",
		Fields: []Field{
			{Name: "titulo", Type: Text, Required: true, SQLType: "text"},
			{Name: "ano_lancamento", Type: Integer, Required: true, SQLType: "integer"},
			{Name: "genero", Type: Text, Required: true, SQLType: "text"},
			{Name: "nota_imdb", Type: Real, Required: true, SQLType: "real"},
		},
	}

	Users = Entity{
		Name:      "users",
		Table:     "usuarios",
		RawFile:   "usuarios_raw.csv",
		CleanFile: "usuarios_clean.csv",
		Fields: []Field{
			{Name: "nome", Type: Text, Required: true, SQLType: "text"},
			{Name: "email", Type: Text, Required: true, SQLType: "text"},
			{Name: "genero", Type: Text, Required: true, SQLType: "text"},
			{Name: "pais", Type: Text, Required: true, SQLType: "text"},
		},
	}

	Ratings = Entity{
		Name:      "ratings",
		Table:     "avaliacoes",
		RawFile:   "avaliacoes_raw.csv",
		CleanFile: "avaliacoes_clean.csv",
		Fields: []Field{
			{Name: "user_id", Type: Integer, Required: true, SQLType: "integer", References: "usuarios(id)"},
			{Name: "filme_titulo", Type: Text, Required: true, MaxLen: MaxCommentLen, SQLType: "varchar(500)", NotNull: true},
			{Name: "nota", Type: Real, Required: true, SQLType: "decimal(3,1)", Check: "nota >= 0 AND nota <= 10"},
			{Name: "comentario", Type: Text, MaxLen: MaxCommentLen, Truncate: true, SQLType: "text"},
			{Name: "data_avaliacao", Type: Timestamp, SQLType: "timestamp", Default: "CURRENT_TIMESTAMP", Generated: true},
		},
	}
)

// All returns the entities in load dependency order.
func All() []Entity {
	return []Entity{Movies, Users, Ratings}
}

// ByName finds an entity by Name or Table.
func ByName(name string) (Entity, bool) {
	for _, e := range All() {
		if e.Name == name || e.Table == name {
			return e, true
		}
	}
	return Entity{}, false
}
