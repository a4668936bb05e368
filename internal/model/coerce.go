package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Coerce converts v to the Go representation of t:
// string, int64, bool or []string.
func Coerce(t FieldType, v any) any {
	switch t {
	case TypeString:
		return toString(v)
	case TypeInteger:
		return toInteger(v)
	case TypeBoolean:
		return toBoolean(v)
	case TypeStringList:
		return toStringList(v)
	default:
		return v
	}
}

// zero returns the default value of t.
func zero(t FieldType) any {
	switch t {
	case TypeString:
		return ""
	case TypeInteger:
		return int64(0)
	case TypeBoolean:
		return false
	case TypeStringList:
		return []string{}
	default:
		return nil
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ",")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func toInteger(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val) //nolint:gosec // overflow is acceptable for coercion
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val) //nolint:gosec // overflow is acceptable for coercion
	case float32:
		return int64(math.Trunc(float64(val)))
	case float64:
		return int64(math.Trunc(val))
	case bool:
		if val {
			return 1
		}

		return 0
	case []byte:
		return parseInteger(string(val))
	case string:
		return parseInteger(val)
	default:
		return parseInteger(fmt.Sprint(val))
	}
}

func parseInteger(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(math.Trunc(f))
	}

	return 0
}

func toBoolean(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return parseBoolean(val)
	case []byte:
		return parseBoolean(string(val))
	case []string:
		return len(val) > 0
	case float32:
		return val != 0
	case float64:
		return val != 0
	default:
		return toInteger(val) != 0
	}
}

func parseBoolean(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func toStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, len(val))
		copy(out, val)

		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, toString(item))
		}

		return out
	case map[string]bool:
		out := make([]string, 0, len(val))
		for k, set := range val {
			if set {
				out = append(out, k)
			}
		}

		sort.Strings(out)

		return out
	case map[string]string:
		out := make([]string, 0, len(val))
		for k := range val {
			out = append(out, k)
		}

		sort.Strings(out)

		return out
	case string:
		return parseStringList(val)
	case []byte:
		return parseStringList(string(val))
	default:
		return []string{toString(val)}
	}
}

// parseStringList accepts a JSON array as stored by text columns,
// otherwise the string becomes a single item.
func parseStringList(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []string{}
	}

	if strings.HasPrefix(trimmed, "[") {
		var out []string
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			if out == nil {
				out = []string{}
			}

			return out
		}
	}

	return []string{s}
}
