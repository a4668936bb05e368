package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/dbtest"
	"github.com/foundry-core/foundry/internal/db/memory"
	"github.com/foundry-core/foundry/internal/model"
)

func newDatabase(t *testing.T) *db.Database {
	t.Helper()

	d := db.New(memory.New())
	dbtest.Seed(t, d.Service())

	return d
}

func TestLoadObject(t *testing.T) {
	d := newDatabase(t)
	ctx := context.Background()

	m, err := d.LoadObject(ctx, dbtest.NewRecord, dbtest.Collection, db.Where(map[string]any{"id": 4}))
	require.NoError(t, err)
	assert.Equal(t, "v4", m.(*dbtest.Record).Text("value"))

	_, err = d.LoadObject(ctx, dbtest.NewRecord, dbtest.Collection, db.Where(map[string]any{"id": 40}))
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestArgumentChecks(t *testing.T) {
	d := newDatabase(t)
	ctx := context.Background()
	rec := dbtest.Build(1, "x")

	_, err := d.LoadObjects(ctx, dbtest.NewRecord, " ", db.Query{})
	require.ErrorIs(t, err, db.ErrEmptyCollection)

	_, err = d.CountObjects(ctx, dbtest.Collection, db.Conditions{{Field: "id", Op: "~", Value: 1}})
	require.ErrorIs(t, err, db.ErrInvalidCondition)

	err = d.DeleteObject(ctx, dbtest.Collection, db.Conditions{{Field: "", Op: db.OpEq}})
	require.ErrorIs(t, err, db.ErrInvalidCondition)

	err = d.UpdateObject(ctx, rec, dbtest.Collection, nil, nil)
	require.ErrorIs(t, err, db.ErrNoUpdateFields)

	err = d.UpdateObject(ctx, rec, dbtest.Collection, nil, []string{"nope"})
	require.ErrorIs(t, err, model.ErrFieldDoesNotExist)

	err = d.WriteObject(ctx, rec, "")
	require.ErrorIs(t, err, db.ErrEmptyCollection)
}

func TestWriteUpdateDelete(t *testing.T) {
	d := newDatabase(t)
	ctx := context.Background()

	require.NoError(t, d.WriteObject(ctx, dbtest.Build(10, "v10"), dbtest.Collection))

	n, err := d.CountObjects(ctx, dbtest.Collection, nil)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	require.NoError(t, d.UpdateObject(ctx, dbtest.Build(0, "new"), dbtest.Collection,
		db.Where(map[string]any{"id": 10}), []string{"value"}))

	m, err := d.LoadObject(ctx, dbtest.NewRecord, dbtest.Collection, db.Where(map[string]any{"value": "new"}))
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.(*dbtest.Record).Int("id"))

	require.NoError(t, d.DeleteObject(ctx, dbtest.Collection, db.Where(map[string]any{"id": 10})))

	n, err = d.CountObjects(ctx, dbtest.Collection, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	require.NoError(t, d.Close())
}
