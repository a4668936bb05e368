package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/foundry-core/foundry/internal/provider"
)

const (
	redisKeyPrefix   = "foundry:session:"
	redisTimeout     = 5 * time.Second
	redisScanBatch   = 100
	redisDialTimeout = 5 * time.Second
)

// ErrRedisURL is returned when the configured redis URL can not be used.
var ErrRedisURL = errors.New("invalid redis url")

// RedisStorage is a fiber.Storage over a redis server. Keys are namespaced
// so that Reset only touches sessions.
type RedisStorage struct {
	client redis.UniversalClient
}

// NewRedisStorage connects to the redis server at url and pings it.
// Supports both redis:// and rediss:// (TLS) URL schemes.
func NewRedisStorage(ctx context.Context, url string) (*RedisStorage, error) {
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, fmt.Errorf("session redis: %w: %w %q", provider.ErrValidation, ErrRedisURL, url)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session redis: %w: %w", provider.ErrValidation, errors.Join(ErrRedisURL, err))
	}

	opts.DialTimeout = redisDialTimeout

	client := redis.NewClient(opts)

	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, provider.Connection("session redis", err)
	}

	return NewRedisStorageWithClient(client), nil
}

// NewRedisStorageWithClient wraps an already connected client.
func NewRedisStorageWithClient(client redis.UniversalClient) *RedisStorage {
	return &RedisStorage{client: client}
}

// Get returns the value stored under key, or nil when absent.
func (r *RedisStorage) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	return val, err //nolint:wrapcheck
}

// Set stores val under key. A zero exp never expires.
func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	return r.client.Set(ctx, redisKeyPrefix+key, val, exp).Err() //nolint:wrapcheck
}

// Delete removes key.
func (r *RedisStorage) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	return r.client.Del(ctx, redisKeyPrefix+key).Err() //nolint:wrapcheck
}

// Reset removes every session key.
func (r *RedisStorage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", redisScanBatch).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	if len(keys) == 0 {
		return nil
	}

	return r.client.Del(ctx, keys...).Err() //nolint:wrapcheck
}

// Close closes the client.
func (r *RedisStorage) Close() error {
	return r.client.Close() //nolint:wrapcheck
}
