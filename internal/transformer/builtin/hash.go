// Package builtin contains small value-level helpers shared by the row
// transforms: canonical row hashing and tolerant scalar coercion.
package builtin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RowHasher computes a deterministic SHA-256 over positional row values.
//
// Canonicalization rules:
//   - Values are concatenated in order using Separator.
//   - nil is encoded as a single NUL byte (0x00) so missing differs from "".
//   - Common types are converted without fmt.Sprint.
//   - time.Time values are encoded as RFC3339Nano in UTC.
//   - Output is a lowercase hex string (length 64).
type RowHasher struct {
	// Separator between values. If empty, defaults to ASCII Unit Separator (0x1f).
	Separator string

	// TrimSpace trims leading/trailing whitespace of string values before hashing.
	TrimSpace bool

	b strings.Builder
}

// Sum returns the hex digest of vals. A RowHasher is not safe for
// concurrent use; it reuses an internal buffer between calls.
func (h *RowHasher) Sum(vals []any) string {
	sep := h.Separator
	if sep == "" {
		sep = "\x1f"
	}

	h.b.Reset()
	h.b.Grow(len(vals) * 20)
	for i, v := range vals {
		if i > 0 {
			h.b.WriteString(sep)
		}
		appendCanonicalValue(&h.b, v, h.TrimSpace)
	}

	sum := sha256.Sum256([]byte(h.b.String()))
	return hex.EncodeToString(sum[:])
}

// appendCanonicalValue appends a stable, canonical representation of v.
func appendCanonicalValue(b *strings.Builder, v any, trimSpace bool) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')

	case string:
		if trimSpace && HasEdgeSpace(t) {
			b.WriteString(strings.TrimSpace(t))
		} else {
			b.WriteString(t)
		}

	case []byte:
		s := string(t)
		if trimSpace && HasEdgeSpace(s) {
			s = strings.TrimSpace(s)
		}
		b.WriteString(s)

	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}

	case int:
		b.WriteString(strconv.Itoa(t))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))

	case float32:
		b.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))

	default:
		b.WriteString(fmt.Sprint(t))
	}
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
// It lets hot paths skip strings.TrimSpace for already-clean values.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
