// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/foundry-core/foundry/internal/config"
)

// Create builds the Data Source Name for the configured gorm engine.
func Create(dbCfg config.DB) string {
	switch dbCfg.GormEngine {
	case "postgres":
		return Postgres(dbCfg)
	case "sqlite":
		return SQLite(dbCfg)
	default:
		return MySQL(dbCfg)
	}
}

// MySQL builds a go-sql-driver style DSN.
func MySQL(dbCfg config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		port(dbCfg.Port, 3306), //nolint:mnd
		dbCfg.Name,
		dbCfg.Extras,
	)

	return strings.TrimSuffix(out, "?")
}

// Postgres builds a libpq keyword/value DSN.
func Postgres(dbCfg config.DB) string {
	out := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d %s",
		dbCfg.Host,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Name,
		port(dbCfg.Port, 5432), //nolint:mnd
		dbCfg.Extras,
	)

	return strings.TrimSpace(out)
}

// PostgresURL builds a postgres:// connection URL.
func PostgresURL(dbCfg config.DB) string {
	out := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		port(dbCfg.Port, 5432), //nolint:mnd
		dbCfg.Name,
		dbCfg.Extras,
	)

	return strings.TrimSuffix(out, "?")
}

// SQLite returns the database file, with extras appended as query parameters.
func SQLite(dbCfg config.DB) string {
	if dbCfg.Extras == "" {
		return dbCfg.Name
	}

	return dbCfg.Name + "?" + dbCfg.Extras
}

func port(p, fallback int) int {
	if p == 0 {
		return fallback
	}

	return p
}
