// Package normalize canonicalizes CSV headers and free text.
//
// Both functions reduce input to ASCII: characters are decomposed (NFKD),
// combining marks are dropped and anything still outside ASCII is removed,
// so "São Paulo" becomes "Sao Paulo". Both are idempotent.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// toASCII builds a fresh chain per call; transform chains carry state and
// must not be shared between goroutines.
func toASCII(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

var columnSeparators = strings.NewReplacer(" ", "", "-", "", "_", "")

// ColumnName returns the canonical identifier for a raw header:
// trimmed, accent-free, without spaces, hyphens or underscores, lowercase.
//
//	"Filme Título" -> "filmetitulo"
//	"user_id"      -> "userid"
func ColumnName(raw string) string {
	s := strings.TrimSpace(raw)
	s = toASCII(s)
	s = columnSeparators.Replace(s)
	return strings.ToLower(s)
}

// Text trims s and strips diacritics.
func Text(s string) string {
	return strings.TrimSpace(toASCII(strings.TrimSpace(s)))
}

// Value applies Text to string values; nil and other types pass through.
func Value(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return Text(s)
}

// Rename maps canonical column names through an entity rename table.
// Names absent from the table are returned unchanged.
func Rename(cols []string, table map[string]string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if to, ok := table[c]; ok {
			out[i] = to
			continue
		}
		out[i] = c
	}
	return out
}
