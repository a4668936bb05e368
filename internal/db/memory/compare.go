package memory

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/model"
)

// Compare orders two field values. When at least one side is numeric and the
// other reads as a number they compare numerically. Two strings always
// compare as text, the way a text column orders them.
func Compare(a, b any) int {
	if numeric(a) || numeric(b) {
		if x, ok := number(a); ok {
			if y, ok := number(b); ok {
				return cmp.Compare(x, y)
			}
		}
	}

	return strings.Compare(text(a), text(b))
}

func numeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func text(v any) string {
	return model.Coerce(model.TypeString, v).(string) //nolint:forcetypeassert
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// sortRows orders rows by rules, first rule first. Rows whose values are equal
// for every rule keep their relative order. Blank values sort before every
// other value ascending and after every other value descending.
func sortRows(rows []row, rules []db.SortRule) {
	if len(rules) == 0 {
		return
	}

	slices.SortStableFunc(rows, func(a, b row) int {
		for _, rule := range rules {
			if c := compareForSort(lookup(a, rule.Field), lookup(b, rule.Field), rule.Direction); c != 0 {
				return c
			}
		}

		return 0
	})
}

func compareForSort(a, b any, dir db.Direction) int {
	ab, bb := blank(a), blank(b)

	var c int

	switch {
	case ab && bb:
		return 0
	case ab:
		c = -1
	case bb:
		c = 1
	default:
		c = Compare(a, b)
	}

	if strings.EqualFold(string(dir), string(db.Desc)) {
		return -c
	}

	return c
}
