package option

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/memory"
)

// setupTestDB creates an in-memory database for testing.
func setupTestDB(t *testing.T) *db.Database {
	t.Helper()

	return db.New(memory.New())
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	_, err := Create(ctx, d, "site_name", "My Site")
	require.NoError(t, err)

	testCases := []struct {
		name          string
		dbParam       *db.Database
		optionName    string
		expectedError error
		expectedValue string
	}{
		{name: "nil database", dbParam: nil, optionName: "test", expectedError: ErrDBNil},
		{name: "empty name", dbParam: d, optionName: "", expectedError: ErrOptionNameEmpty},
		{name: "option not found", dbParam: d, optionName: "nonexistent", expectedError: ErrOptionNotFound},
		{name: "successful get", dbParam: d, optionName: "site_name", expectedValue: "My Site"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := Get(ctx, tc.dbParam, tc.optionName)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, o)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedValue, o.Value())
			assert.NotEmpty(t, o.ID())
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	_, err := Create(ctx, d, "a", "1")
	require.NoError(t, err)

	_, err = Create(ctx, d, "a", "2")
	require.ErrorIs(t, err, ErrOptionAlreadyExists)

	_, err = Create(ctx, nil, "a", "2")
	require.ErrorIs(t, err, ErrDBNil)
}

func TestSetUpserts(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	first, err := Set(ctx, d, "theme", "dark")
	require.NoError(t, err)

	second, err := Set(ctx, d, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	assert.Equal(t, "light", Value(ctx, d, "theme", "none"))
	assert.Equal(t, "none", Value(ctx, d, "missing", "none"))

	n, err := d.CountObjects(ctx, Collection, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetAllAndDelete(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	for _, name := range []string{"b", "c", "a"} {
		_, err := Create(ctx, d, name, name+"-value")
		require.NoError(t, err)
	}

	all, err := GetAll(ctx, d)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Name())
	assert.Equal(t, "c", all[2].Name())

	require.NoError(t, Delete(ctx, d, "b"))
	require.ErrorIs(t, Delete(ctx, d, "b"), ErrOptionNotFound)

	all, err = GetAll(ctx, d)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
