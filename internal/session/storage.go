package session

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db/dsn"
	"github.com/foundry-core/foundry/internal/provider"
)

// NewStorage builds the storage backend named by cfg.Storage. The sql
// backends connect with the relational database settings in sqlCfg.
func NewStorage(ctx context.Context, cfg config.Session, sqlCfg config.DB) (fiber.Storage, error) {
	switch cfg.Storage {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "redis":
		return NewRedisStorage(ctx, cfg.RedisURL)
	case "mysql":
		return open("session mysql", func() fiber.Storage {
			return sessionmysql.New(sessionmysql.Config{
				ConnectionURI: dsn.MySQL(sqlCfg),
				Table:         cfg.Table,
			})
		})
	case "postgres":
		return open("session postgres", func() fiber.Storage {
			return sessionpostgres.New(sessionpostgres.Config{
				ConnectionURI: dsn.PostgresURL(sqlCfg),
				Table:         cfg.Table,
			})
		})
	default:
		return nil, provider.Unknown("session storage", cfg.Storage)
	}
}

// open runs a storage constructor that panics when its database is
// unreachable and turns the panic into a connection error.
func open(service string, build func() fiber.Storage) (storage fiber.Storage, err error) {
	defer func() {
		if r := recover(); r != nil {
			storage = nil
			err = provider.Connection(service, fmt.Errorf("%v", r))
		}
	}()

	return build(), nil
}
