package db

import (
	"fmt"

	"github.com/foundry-core/foundry/internal/model"
)

// ResultSet is an ordered collection of models, optionally keyed.
// Positional entries have an empty key.
type ResultSet struct {
	items []model.Model
	keys  []string
	index map[string]int
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[string]int)}
}

// Add appends m under key. A non-empty key that is already present
// replaces the earlier entry in place. An empty key appends positionally.
func (r *ResultSet) Add(key string, m model.Model) {
	if key != "" {
		if idx, ok := r.index[key]; ok {
			r.items[idx] = m
			return
		}

		r.index[key] = len(r.items)
	}

	r.items = append(r.items, m)
	r.keys = append(r.keys, key)
}

// Len returns the number of entries.
func (r *ResultSet) Len() int {
	return len(r.items)
}

// Items returns the entries in order.
func (r *ResultSet) Items() []model.Model {
	out := make([]model.Model, len(r.items))
	copy(out, r.items)

	return out
}

// Keys returns the entry keys in order; positional entries have an empty key.
func (r *ResultSet) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)

	return out
}

// Get returns the entry stored under key.
func (r *ResultSet) Get(key string) (model.Model, bool) {
	idx, ok := r.index[key]
	if !ok {
		return nil, false
	}

	return r.items[idx], true
}

// First returns the first entry.
func (r *ResultSet) First() (model.Model, bool) {
	if len(r.items) == 0 {
		return nil, false
	}

	return r.items[0], true
}

// Collect builds a result set from raw rows. Each row is loaded into a
// fresh instance from factory; columns unknown to the model are ignored.
func Collect(factory model.Factory, keyField string, rows []map[string]any) (*ResultSet, error) {
	rs := NewResultSet()

	for _, row := range rows {
		m := factory()
		model.Load(m, row)

		key := ""

		if keyField != "" {
			v, err := m.Get(keyField)
			if err != nil {
				return nil, fmt.Errorf("key field: %w", err)
			}

			key = keyString(v)
		}

		rs.Add(key, m)
	}

	return rs, nil
}

func keyString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return ""
	case bool:
		if val {
			return "1"
		}

		return ""
	default:
		return fmt.Sprint(val)
	}
}
