package daemon

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/access"
	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/controller/option"
	"github.com/foundry-core/foundry/internal/db/controller/resettoken"
	"github.com/foundry-core/foundry/internal/db/memory"
	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/db/mongo"
	"github.com/foundry-core/foundry/internal/db/sql"
	"github.com/foundry-core/foundry/internal/model"
	"github.com/foundry-core/foundry/internal/provider"
	"github.com/foundry-core/foundry/internal/web"
)

// collections are created up front on backends with a fixed schema.
var collections = []struct { //nolint:gochecknoglobals
	name   string
	schema *model.Schema
}{
	{name: access.Collection(), schema: models.RoleSchema},
	{name: option.Collection, schema: models.OptionSchema},
	{name: resettoken.Collection, schema: models.ResetTokenSchema},
}

// NewDatabase opens the database service named by cfg.Service.
func NewDatabase(ctx context.Context, cfg config.Database) (*db.Database, error) {
	switch cfg.Service {
	case "", "memory":
		return db.New(memory.New()), nil
	case "sql":
		svc, err := sql.Open(ctx, cfg.SQL)
		if err != nil {
			return nil, err
		}

		for _, c := range collections {
			if err = svc.EnsureCollection(ctx, c.name, c.schema); err != nil {
				_ = svc.Close()
				return nil, provider.Connection("database sql", err)
			}
		}

		return db.New(svc), nil
	case "mongo":
		svc, err := mongo.Open(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}

		return db.New(svc), nil
	default:
		return nil, provider.Unknown("database", cfg.Service)
	}
}

// Auth is the authentication side built from configuration.
type Auth struct {
	// Factory returns the service of one request.
	Factory web.AuthFactory
	// Shared is the provider behind Factory when it does not depend on the
	// request, nil for Crowd.
	Shared auth.Service
	OIDC   *auth.OIDC
	Hasher *auth.Hasher

	close func() error
}

// Close releases the provider connection.
func (a *Auth) Close() error {
	if a.close == nil {
		return nil
	}

	return a.close()
}

// NewAuth builds the authentication service named by cfg.Service and
// wraps it with OIDC single sign-on when enabled.
func NewAuth(ctx context.Context, cfg config.Auth) (*Auth, error) {
	hasher, err := auth.NewHasher(cfg.HashAlgorithm, cfg.HashKey, cfg.HashRounds)
	if err != nil {
		return nil, err
	}

	a := &Auth{Hasher: hasher}

	switch cfg.Service {
	case "", "memory":
		a.Shared = auth.NewMemoryService()
	case "ldap":
		svc, errLDAP := auth.NewLDAPService(cfg.LDAP)
		if errLDAP != nil {
			return nil, errLDAP
		}

		a.Shared = svc
		a.close = svc.Close
	case "crowd":
		client, errCrowd := auth.NewCrowdClient(cfg.Crowd)
		if errCrowd != nil {
			return nil, errCrowd
		}

		a.Factory = func(cookies auth.Cookies) auth.Service {
			return auth.NewCrowdService(client, cookies, cfg.Crowd.CookieName)
		}
	default:
		return nil, provider.Unknown("auth", cfg.Service)
	}

	if a.Shared != nil {
		shared := a.Shared
		a.Factory = func(auth.Cookies) auth.Service { return shared }
	}

	if !cfg.OIDC.Enabled {
		return a, nil
	}

	o, err := auth.NewOIDC(ctx, cfg.OIDC)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	base := a.Factory
	a.OIDC = o
	a.Factory = func(cookies auth.Cookies) auth.Service {
		return auth.WithSSO(base(cookies), o, cookies, o.CookieName())
	}

	log.Info().Str("provider", cfg.OIDC.ProviderURL).Msg("OIDC single sign-on enabled")

	return a, nil
}

// NewAccess builds the role service named by cfg.Service.
func NewAccess(cfg config.Access, database *db.Database) (access.Service, error) {
	switch cfg.Service {
	case "", "memory":
		return access.NewMemoryService(), nil
	case "database":
		return access.NewDatabaseService(database), nil
	default:
		return nil, provider.Unknown("access", cfg.Service)
	}
}
