package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"moviedw/internal/transformer"
)

// WriteTable writes t as UTF-8 CSV with a header row.
// nil cells are written as empty fields.
func WriteTable(w io.Writer, t transformer.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(r.V) {
				rec[i] = FormatCell(r.V[i])
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv: write line %d: %w", r.Line, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCell renders a cell value the way clean CSVs store it.
// Floats keep at least one decimal so scores read back as REAL ("5.0").
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if t == float64(int64(t)) {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
