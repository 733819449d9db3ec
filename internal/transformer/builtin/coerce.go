package builtin

import (
	"math"
	"strconv"
	"strings"
)

// ToInt coerces v to int64.
//
// Strings holding integral floats ("2010.0") are accepted, since spreadsheet
// exports often write integers that way. Comma decimal separators are
// accepted. Empty strings, nil and non-integral values report ok=false.
func ToInt(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, ok := ToFloat(s)
		if !ok {
			return 0, false
		}
		return ToInt(f)
	default:
		return 0, false
	}
}

// ToFloat coerces v to float64. "7,5" parses as 7.5. NaN and Inf are rejected.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case float32:
		return ToFloat(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return ToFloat(f)
	default:
		return 0, false
	}
}
