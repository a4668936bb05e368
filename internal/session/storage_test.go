package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/provider"
)

func TestNewStorageMemory(t *testing.T) {
	for _, name := range []string{"", "memory"} {
		st, err := NewStorage(context.Background(), config.Session{Storage: name}, config.DB{})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, st)
	}
}

func TestNewStorageUnknown(t *testing.T) {
	_, err := NewStorage(context.Background(), config.Session{Storage: "etcd"}, config.DB{})
	require.ErrorIs(t, err, provider.ErrUnknownService)
}

func TestNewStorageRedisValidation(t *testing.T) {
	testCases := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "http scheme", url: "http://localhost:6379"},
		{name: "no scheme", url: "localhost:6379"},
		{name: "invalid database", url: "redis://localhost:6379/notanumber"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStorage(context.Background(), config.Session{Storage: "redis", RedisURL: tc.url}, config.DB{})
			require.ErrorIs(t, err, provider.ErrValidation)
			require.ErrorIs(t, err, ErrRedisURL)
		})
	}
}

func TestNewStorageRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStorage(ctx, "redis://127.0.0.1:1/0")
	require.ErrorIs(t, err, provider.ErrServiceConnection)
}

func TestOpenRecoversPanic(t *testing.T) {
	st, err := open("session test", func() fiber.Storage {
		panic(errors.New("dial tcp: connection refused"))
	})

	require.ErrorIs(t, err, provider.ErrServiceConnection)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, st)
}
