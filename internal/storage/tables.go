// Table and view descriptors live here so the loader and every backend can
// import them without cycles.
package storage

import (
	"fmt"
	"strings"

	"moviedw/internal/schema"
)

// TableSpec describes a warehouse table.
type TableSpec struct {
	Name       string          `json:"name"`
	PrimaryKey *PrimaryKeySpec `json:"primary_key,omitempty"`
	Columns    []ColumnSpec    `json:"columns"`
}

// PrimaryKeySpec is a surrogate key. Type "serial" maps to each backend's
// auto-increment identity.
type PrimaryKeySpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ColumnSpec is one column definition. Type is the portable type from the
// schema descriptor; backends translate it where their dialect differs.
type ColumnSpec struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null,omitempty"`
	References string `json:"references,omitempty"`
	Check      string `json:"check,omitempty"`
	Default    string `json:"default,omitempty"`
}

// TableFor derives the table spec of an entity, with an "id" serial key.
func TableFor(e schema.Entity) TableSpec {
	t := TableSpec{
		Name:       e.Table,
		PrimaryKey: &PrimaryKeySpec{Name: "id", Type: "serial"},
		Columns:    make([]ColumnSpec, 0, len(e.Fields)),
	}
	for _, f := range e.Fields {
		t.Columns = append(t.Columns, ColumnSpec{
			Name:       f.Name,
			Type:       f.SQLType,
			NotNull:    f.NotNull,
			References: f.References,
			Check:      f.Check,
			Default:    f.Default,
		})
	}
	return t
}

// Tables returns the specs of every entity in dependency order.
func Tables() []TableSpec {
	all := schema.All()
	out := make([]TableSpec, 0, len(all))
	for _, e := range all {
		out = append(out, TableFor(e))
	}
	return out
}

// ColumnDef renders "<ident> <type> [NOT NULL] [DEFAULT ..] [CHECK (..)] [REFERENCES ..]".
// ident quotes the name and typ translates the portable type.
func ColumnDef(c ColumnSpec, ident func(string) string, typ func(string) string) (string, error) {
	name := strings.TrimSpace(c.Name)
	t := strings.TrimSpace(c.Type)
	if name == "" || t == "" {
		return "", fmt.Errorf("column name/type must be set")
	}

	var b strings.Builder
	b.WriteString(ident(name))
	b.WriteString(" ")
	b.WriteString(typ(t))
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if d := strings.TrimSpace(c.Default); d != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(d)
	}
	if chk := strings.TrimSpace(c.Check); chk != "" {
		b.WriteString(" CHECK (")
		b.WriteString(chk)
		b.WriteString(")")
	}
	if ref := strings.TrimSpace(c.References); ref != "" {
		b.WriteString(" REFERENCES ")
		b.WriteString(ref)
	}
	return b.String(), nil
}
