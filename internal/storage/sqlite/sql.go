package sqlite

import (
	"fmt"
	"strings"

	"moviedw/internal/storage"
)

// maxParams is SQLITE_MAX_VARIABLE_NUMBER for builds since 3.32.
const maxParams = 32766

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqlType(t string) string { return t }

func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		pkType := strings.TrimSpace(strings.ToLower(t.PrimaryKey.Type))

		// "INTEGER PRIMARY KEY" is special in sqlite: it becomes the rowid.
		// AUTOINCREMENT makes the counter visible in sqlite_sequence.
		switch pkType {
		case "serial", "bigserial", "identity":
			parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, sqlIdent(t.PrimaryKey.Name)))
		default:
			parts = append(parts, fmt.Sprintf(`%s %s PRIMARY KEY`, sqlIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
		}
	}

	for _, c := range t.Columns {
		def, err := storage.ColumnDef(c, sqlIdent, sqlType)
		if err != nil {
			return "", fmt.Errorf("%s: %w", t.Name, err)
		}
		parts = append(parts, def)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%s: no columns", t.Name)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", t.Name, strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL builds a multi-row INSERT with positional "?" placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = sqlIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row[:len(columns)]...)
	}
	return b.String(), args
}

func buildResetSequenceSQL(tables []string) (string, []any) {
	args := make([]any, len(tables))
	for i, t := range tables {
		args[i] = t
	}
	q := "DELETE FROM sqlite_sequence WHERE name IN (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(tables)), ", ") + ")"
	return q, args
}

// buildViewSQL returns the drop and create statements for v.
func buildViewSQL(v storage.ViewSpec) []string {
	return []string{
		"DROP VIEW IF EXISTS " + v.Name,
		storage.OrderedViewSQL("CREATE VIEW", v),
	}
}
