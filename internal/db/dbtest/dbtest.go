// Package dbtest holds a backend conformance suite for db.Service
// implementations. Every backend must pass it with identical results.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/model"
)

// Collection is the collection the suite writes to.
const Collection = "records"

// RecordSchema has an integer id, a string value and a list of labels.
var RecordSchema = model.NewSchema("record", "id", //nolint:gochecknoglobals
	model.Field{Name: "id", Type: model.TypeInteger},
	model.Field{Name: "value", Type: model.TypeString},
	model.Field{Name: "labels", Type: model.TypeStringList},
)

// Record is the model the suite stores.
type Record struct {
	model.Base
}

// NewRecord returns an empty record.
func NewRecord() model.Model {
	return &Record{Base: model.NewBase(RecordSchema)}
}

// Build returns a record with the given id and value.
func Build(id int, value string) *Record {
	r := NewRecord().(*Record) //nolint:forcetypeassert
	r.MustSet("id", id)
	r.MustSet("value", value)
	r.MustSet("labels", []string{fmt.Sprintf("l%d", id)})

	return r
}

// Seed writes ten records with ids 0..9, values "v0".."v9", in id order.
func Seed(t *testing.T, svc db.Service) {
	t.Helper()

	for i := range 10 {
		require.NoError(t, svc.WriteObject(context.Background(), Build(i, fmt.Sprintf("v%d", i)), Collection))
	}
}

// IDs returns the ids of rs in order.
func IDs(rs *db.ResultSet) []int64 {
	out := make([]int64, 0, rs.Len())
	for _, m := range rs.Items() {
		out = append(out, m.(*Record).Int("id")) //nolint:forcetypeassert
	}

	return out
}

// Run executes the conformance suite. reset must leave the collection empty.
func Run(t *testing.T, svc db.Service, reset func(t *testing.T)) {
	t.Helper()

	ctx := context.Background()
	byID := []db.SortRule{db.SortAsc("id")}

	load := func(t *testing.T, q db.Query) *db.ResultSet {
		t.Helper()

		if q.Sort == nil {
			q.Sort = byID
		}

		rs, err := svc.LoadObjects(ctx, NewRecord, Collection, q)
		require.NoError(t, err)

		return rs
	}

	t.Run("conditions", func(t *testing.T) {
		reset(t)
		Seed(t, svc)

		testCases := []struct {
			name     string
			conds    db.Conditions
			expected []int64
		}{
			{name: "lower than", conds: db.Conditions{db.Lt("id", 3)}, expected: []int64{0, 1, 2}},
			{name: "greater or equal", conds: db.Conditions{db.Gte("id", 4)}, expected: []int64{4, 5, 6, 7, 8, 9}},
			{name: "greater than", conds: db.Conditions{db.Gt("id", 7)}, expected: []int64{8, 9}},
			{name: "lower or equal", conds: db.Conditions{db.Lte("id", 1)}, expected: []int64{0, 1}},
			{name: "equal", conds: db.Where(map[string]any{"value": "v5"}), expected: []int64{5}},
			{name: "and", conds: db.Conditions{db.Gt("id", 2), db.Lt("id", 5)}, expected: []int64{3, 4}},
			{name: "none", conds: db.Conditions{db.Eq("value", "missing")}, expected: []int64{}},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.expected, IDs(load(t, db.Query{Conditions: tc.conds})))

				n, err := svc.CountObjects(ctx, Collection, tc.conds)
				require.NoError(t, err)
				assert.Equal(t, len(tc.expected), n)
			})
		}
	})

	t.Run("limits", func(t *testing.T) {
		reset(t)
		Seed(t, svc)

		assert.Equal(t, []int64{0}, IDs(load(t, db.Query{Limit: db.First(1)})))
		assert.Equal(t, []int64{2}, IDs(load(t, db.Query{Limit: db.Range(2, 1)})))
		assert.Equal(t, []int64{6, 7, 8, 9}, IDs(load(t, db.Query{Limit: db.Range(6, 100)})))
		assert.Empty(t, IDs(load(t, db.Query{Limit: db.Range(20, 5)})))
	})

	t.Run("sort", func(t *testing.T) {
		reset(t)

		for i, v := range []string{"z", "y", "x"} {
			require.NoError(t, svc.WriteObject(ctx, Build(i, v), Collection))
		}

		rs := load(t, db.Query{
			Conditions: db.Conditions{db.Lt("id", 3)},
			Sort:       []db.SortRule{db.SortAsc("value")},
		})
		assert.Equal(t, []int64{2, 1, 0}, IDs(rs))

		rs = load(t, db.Query{Sort: []db.SortRule{db.SortDesc("id")}})
		assert.Equal(t, []int64{2, 1, 0}, IDs(rs))

		require.NoError(t, svc.WriteObject(ctx, Build(3, "x"), Collection))

		rs = load(t, db.Query{Sort: []db.SortRule{db.SortAsc("value"), db.SortDesc("id")}})
		assert.Equal(t, []int64{3, 2, 1, 0}, IDs(rs))
	})

	t.Run("text ordering", func(t *testing.T) {
		reset(t)

		for i, v := range []string{"9", "10"} {
			require.NoError(t, svc.WriteObject(ctx, Build(i, v), Collection))
		}

		rs := load(t, db.Query{Sort: []db.SortRule{db.SortAsc("value")}})
		assert.Equal(t, []int64{1, 0}, IDs(rs), "\"10\" sorts before \"9\"")

		n, err := svc.CountObjects(ctx, Collection, db.Conditions{db.Lt("value", "5")})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.Equal(t, []int64{1}, IDs(load(t, db.Query{Conditions: db.Conditions{db.Lt("value", "5")}})))
	})

	t.Run("blank values", func(t *testing.T) {
		reset(t)

		for i, v := range []string{"b", "", "a", ""} {
			require.NoError(t, svc.WriteObject(ctx, Build(i, v), Collection))
		}

		rs := load(t, db.Query{Sort: []db.SortRule{db.SortAsc("value"), db.SortAsc("id")}})
		assert.Equal(t, []int64{1, 3, 2, 0}, IDs(rs))

		rs = load(t, db.Query{Sort: []db.SortRule{db.SortDesc("value"), db.SortAsc("id")}})
		assert.Equal(t, []int64{0, 2, 1, 3}, IDs(rs))
	})

	t.Run("key field", func(t *testing.T) {
		reset(t)
		Seed(t, svc)

		rs := load(t, db.Query{KeyField: "value", Limit: db.First(3)})
		assert.Equal(t, []string{"v0", "v1", "v2"}, rs.Keys())

		m, ok := rs.Get("v1")
		require.True(t, ok)
		assert.Equal(t, int64(1), m.(*Record).Int("id")) //nolint:forcetypeassert
		assert.Equal(t, []string{"l1"}, m.(*Record).Strings("labels"))
	})

	t.Run("update", func(t *testing.T) {
		reset(t)
		Seed(t, svc)

		changed := Build(0, "changed")
		changed.MustSet("labels", []string{"a", "b"})

		require.NoError(t, svc.UpdateObject(ctx, changed, Collection, db.Conditions{db.Lt("id", 2)}, []string{"value"}))

		rs := load(t, db.Query{Conditions: db.Where(map[string]any{"value": "changed"})})
		assert.Equal(t, []int64{0, 1}, IDs(rs))

		for _, m := range rs.Items() {
			assert.Len(t, m.(*Record).Strings("labels"), 1) //nolint:forcetypeassert
		}

		require.NoError(t, svc.UpdateObject(ctx, changed, Collection, db.Conditions{db.Eq("id", 9)}, []string{"labels"}))

		rs = load(t, db.Query{Conditions: db.Conditions{db.Eq("id", 9)}})
		require.Equal(t, 1, rs.Len())
		first, _ := rs.First()
		assert.Equal(t, []string{"a", "b"}, first.(*Record).Strings("labels")) //nolint:forcetypeassert
		assert.Equal(t, "v9", first.(*Record).Text("value"))                   //nolint:forcetypeassert
	})

	t.Run("delete", func(t *testing.T) {
		reset(t)
		Seed(t, svc)

		require.NoError(t, svc.DeleteObject(ctx, Collection, db.Conditions{db.Gte("id", 5)}))

		n, err := svc.CountObjects(ctx, Collection, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}
