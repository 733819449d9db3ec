package mssql

import (
	"fmt"
	"regexp"
	"strings"

	"moviedw/internal/storage"
)

const (
	// maxParams stays under the 2100 parameter limit of an RPC call.
	maxParams = 2000
	// maxRows is the row limit of a table value constructor.
	maxRows = 1000
)

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent quotes each part of a possibly schema-qualified name.
//
//	"dbo.filmes" -> [dbo].[filmes]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

var varcharRe = regexp.MustCompile(`^varchar\((\d+)\)$`)

// mssqlType translates portable column types. Unicode types are used for
// every text column since titles and names carry accents.
func mssqlType(t string) string {
	lt := strings.ToLower(strings.TrimSpace(t))
	switch {
	case lt == "text":
		return "NVARCHAR(MAX)"
	case lt == "integer":
		return "INT"
	case lt == "real":
		return "FLOAT"
	case lt == "timestamp":
		return "DATETIME2"
	case varcharRe.MatchString(lt):
		return "NVARCHAR(" + varcharRe.FindStringSubmatch(lt)[1] + ")"
	default:
		return t
	}
}

// buildCreateSQL renders an idempotent CREATE TABLE guarded by OBJECT_ID.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var cols []string
	if t.PrimaryKey != nil {
		pkType := strings.ToLower(strings.TrimSpace(t.PrimaryKey.Type))
		switch pkType {
		case "serial", "identity":
			cols = append(cols, fmt.Sprintf("%s INT IDENTITY(1,1) PRIMARY KEY", mssqlIdent(t.PrimaryKey.Name)))
		case "bigserial":
			cols = append(cols, fmt.Sprintf("%s BIGINT IDENTITY(1,1) PRIMARY KEY", mssqlIdent(t.PrimaryKey.Name)))
		default:
			cols = append(cols, fmt.Sprintf("%s %s PRIMARY KEY", mssqlIdent(t.PrimaryKey.Name), mssqlType(t.PrimaryKey.Type)))
		}
	}
	for _, c := range t.Columns {
		def, err := storage.ColumnDef(c, mssqlIdent, mssqlType)
		if err != nil {
			return "", fmt.Errorf("%s: %w", t.Name, err)
		}
		cols = append(cols, def)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("%s: no columns", t.Name)
	}

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(t.Name, "'", "''"), mssqlTableIdent(t.Name), strings.Join(cols, ", "),
	), nil
}

// buildInsertSQL builds a multi-row INSERT with @pN placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = mssqlIdent(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", mssqlTableIdent(table), strings.Join(cols, ", "))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

// buildReseedSQL resets the identity so the next insert gets 1. RESEED 0
// on a table that never had a row would make the first id 0, hence the
// last_value guard.
func buildReseedSQL(table string) string {
	name := strings.ReplaceAll(table, "'", "''")
	return fmt.Sprintf(
		"IF EXISTS (SELECT 1 FROM sys.identity_columns WHERE object_id = OBJECT_ID(N'%s') AND last_value IS NOT NULL) DBCC CHECKIDENT (N'%s', RESEED, 0);",
		name, name,
	)
}

func buildViewSQL(v storage.ViewSpec) string {
	return storage.OrderedViewSQL("CREATE OR ALTER VIEW", storage.ViewSpec{Name: v.Name, Select: v.Select}) + ";"
}

func buildCountSQL(table string) string {
	return "SELECT COUNT_BIG(*) FROM " + mssqlTableIdent(table) + ";"
}
