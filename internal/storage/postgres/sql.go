package postgres

import (
	"fmt"
	"strings"

	"moviedw/internal/storage"
)

// maxParams is the Postgres wire protocol limit on bind parameters per
// statement.
const maxParams = 65535

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func identity(s string) string { return s }

// buildCreateSQL renders CREATE TABLE IF NOT EXISTS for t. The primary key,
// when present, is the first column.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("buildCreateSQL: table name is empty")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	if t.PrimaryKey != nil {
		pk := strings.TrimSpace(t.PrimaryKey.Name)
		pkType := strings.TrimSpace(t.PrimaryKey.Type)
		if pk == "" || pkType == "" {
			return "", fmt.Errorf("buildCreateSQL: table %s: primary key name and type are required", t.Name)
		}
		cols = append(cols, fmt.Sprintf(`%s %s PRIMARY KEY`, pgIdent(pk), pkType))
	}
	for _, c := range t.Columns {
		def, err := storage.ColumnDef(c, pgIdent, identity)
		if err != nil {
			return "", fmt.Errorf("buildCreateSQL: table %s: %w", t.Name, err)
		}
		cols = append(cols, def)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("buildCreateSQL: table %s: no columns", t.Name)
	}

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`, t.Name, strings.Join(cols, ", ")), nil
}

// buildInsertSQL constructs one multi-row INSERT with $n placeholders.
//
// rows must have the same length as columns for every row.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

// buildTruncateSQL empties every table in one statement. CASCADE covers
// the avaliacoes -> usuarios foreign key whatever order the caller uses.
func buildTruncateSQL(tables []string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE;", strings.Join(tables, ", "))
}

func buildViewSQL(v storage.ViewSpec) string {
	return storage.OrderedViewSQL("CREATE OR REPLACE VIEW", v) + ";"
}

func buildCountSQL(table string) string {
	return "SELECT COUNT(*) FROM " + table
}

func buildIDsSQL(table, column string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", pgIdent(column), table, pgIdent(column))
}
