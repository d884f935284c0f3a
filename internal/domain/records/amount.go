package records

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount reads a money value. Text may use spaces as thousand separators
// and a comma as the decimal mark.
func ParseAmount(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		text := strings.Join(strings.Fields(val), "")
		if text == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatAmount renders an amount for display: whole numbers without a fraction,
// otherwise two decimals with trailing zeros dropped. Unparseable values give "—".
func FormatAmount(v any) string {
	f, ok := ParseAmount(v)
	if !ok {
		return "—"
	}
	return FormatFloat(f)
}

// FormatFloat is FormatAmount for an already parsed value.
func FormatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	text := strconv.FormatFloat(f, 'f', 2, 64)
	text = strings.TrimRight(text, "0")
	return strings.TrimRight(text, ".")
}
