package resettoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/memory"
)

func newStore(t *testing.T, now time.Time) *Store {
	t.Helper()

	s := New(db.New(memory.New()))
	s.now = func() time.Time { return now }

	return s
}

func TestCreateAndConsume(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, time.Unix(1_000, 0))

	tok, err := s.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000+3600), tok.Expiration())
	assert.NotEqual(t, tok.ID(), tok.Token())

	username, err := s.Validate(ctx, tok.Token())
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	username, err = s.Consume(ctx, tok.Token())
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = s.Consume(ctx, tok.Token())
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestCreateRequiresUsername(t *testing.T) {
	_, err := newStore(t, time.Now()).Create(context.Background(), "", time.Hour)
	require.ErrorIs(t, err, ErrUsernameEmpty)
}

func TestExpired(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, time.Unix(1_000, 0))

	tok, err := s.Create(ctx, "alice", time.Minute)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Unix(1_000+61, 0) }

	_, err = s.Validate(ctx, tok.Token())
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = s.Validate(ctx, "")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, time.Unix(1_000, 0))

	_, err := s.Create(ctx, "short", time.Minute)
	require.NoError(t, err)
	long, err := s.Create(ctx, "long", time.Hour)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Unix(1_000+120, 0) }

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	username, err := s.Validate(ctx, long.Token())
	require.NoError(t, err)
	assert.Equal(t, "long", username)

	n, err = s.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
