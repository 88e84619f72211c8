package entity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// asInt converts a JSON scalar into a non-negative int.
func asInt(v any) int {
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0
		}
		return x
	case int64:
		if x < 0 {
			return 0
		}
		return int(x)
	case float64:
		if x < 0 {
			return 0
		}
		return int(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil || n < 0 {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil || n < 0 {
			return 0
		}
		return n
	default:
		return 0
	}
}

// asString converts common scalar types to a string; nil and containers yield "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// asStrings accepts either a comma separated string or a JSON array of scalars.
func asStrings(v any) []string {
	var parts []string
	switch x := v.(type) {
	case string:
		parts = strings.Split(x, ",")
	case []any:
		for _, e := range x {
			parts = append(parts, asString(e))
		}
	case []string:
		parts = x
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// asObject returns v as a JSON object or nil.
func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
