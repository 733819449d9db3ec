package config

import (
	"strconv"
	"strings"
)

// Options is a loosely typed option bag used by parsers and stages.
//
// Values usually come from YAML/JSON config, so accessors accept the shapes
// those decoders produce (float64 for numbers, []any and map[string]any for
// collections) in addition to native Go types.
type Options map[string]any

// Bool returns the boolean option under key or def when missing or malformed.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Int returns the integer option under key or def.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// String returns the string option under key or def when missing or empty.
func (o Options) String(key string, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// Rune returns the first rune of a string option, e.g. a CSV delimiter.
// The escape "\t" is accepted for tab.
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	if s == "" {
		return def
	}
	if s == `\t` {
		return '\t'
	}
	for _, r := range s {
		return r
	}
	return def
}

// StringMap returns a map[string]string option. Non-string values are skipped.
func (o Options) StringMap(key string) map[string]string {
	v, ok := o[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]string:
		return t
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, mv := range t {
			if s, ok := mv.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}
