// Package daemon builds every service from configuration and runs the web
// service until it is shut down.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/controller/resettoken"
	"github.com/foundry-core/foundry/internal/session"
	"github.com/foundry-core/foundry/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	database   *db.Database
	auth       *Auth
	sessions   *session.Store
	webService *web.Service
}

// New creates a new Daemon instance with the provided configuration.
// Provider construction failures are returned and not retried.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	d := &Daemon{cfg: cfg}

	var err error

	if d.database, err = NewDatabase(ctx, cfg.Database); err != nil {
		return nil, err
	}

	if d.auth, err = NewAuth(ctx, cfg.Auth); err != nil {
		d.Close()
		return nil, err
	}

	roles, err := NewAccess(cfg.Access, d.database)
	if err != nil {
		d.Close()
		return nil, err
	}

	if err = seed(ctx, cfg, d.auth.Shared, roles, d.database); err != nil {
		d.Close()
		return nil, err
	}

	storage, err := session.NewStorage(ctx, cfg.Webserver.Session, cfg.Database.SQL)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.sessions = session.New(storage, cfg.Webserver.Session.ExpiryTime)

	deps := web.Deps{
		Auth:        d.auth.Factory,
		Access:      roles,
		Hasher:      d.auth.Hasher,
		Sessions:    d.sessions,
		ResetTokens: resettoken.New(d.database),
	}

	if d.auth.OIDC != nil {
		deps.OIDC = d.auth.OIDC
	}

	if d.webService, err = web.New(cfg, deps); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// Start runs the web service until a shutdown signal arrives, then
// releases every provider.
func (d *Daemon) Start() error {
	defer d.Close()

	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// Close releases the providers. It is safe to call on a partly built
// daemon and more than once.
func (d *Daemon) Close() {
	if d.sessions != nil {
		if err := d.sessions.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close session storage")
		}

		d.sessions = nil
	}

	if d.auth != nil {
		if err := d.auth.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close auth service")
		}

		d.auth = nil
	}

	if d.database != nil {
		if err := d.database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}

		d.database = nil
	}
}

// Web returns the web service.
func (d *Daemon) Web() *web.Service {
	return d.webService
}
