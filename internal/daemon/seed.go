package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/access"
	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/controller/option"
	"github.com/foundry-core/foundry/internal/db/controller/resettoken"
	"github.com/foundry-core/foundry/internal/db/models"
)

const (
	// DefaultAdminUser is created in the admin group of a fresh memory auth service.
	DefaultAdminUser = "admin"
	// DefaultAdminPassword is the password of DefaultAdminUser.
	DefaultAdminPassword = "changeme" //nolint:gosec

	// OptionSeededAt records when the database was first seeded.
	OptionSeededAt = "foundry.seeded_at"
)

// ErrSeed is returned when the initial data could not be written.
var ErrSeed = errors.New("seeding failed")

func seed(ctx context.Context, cfg *config.Config, svc auth.Service, roles access.Service, database *db.Database) error {
	if svc != nil && cfg.Auth.Service == "memory" {
		if err := seedAdmin(svc, cfg.Auth.AdminGroup); err != nil {
			return err
		}
	}

	for _, r := range cfg.Access.Roles {
		if err := seedRole(roles, r); err != nil {
			return err
		}
	}

	if option.Value(ctx, database, OptionSeededAt, "") == "" {
		if _, err := option.Set(ctx, database, OptionSeededAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return errors.Join(ErrSeed, err)
		}
	}

	purged, err := resettoken.New(database).Purge(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to purge expired reset tokens")
	} else if purged > 0 {
		log.Info().Int("count", purged).Msg("purged expired reset tokens")
	}

	return nil
}

func seedAdmin(svc auth.Service, adminGroup string) error {
	if !svc.UserExists(DefaultAdminUser) {
		u := models.NewUser()
		u.SetUsername(DefaultAdminUser)
		u.SetDisplayName("Administrator")

		if !svc.AddUser(u, DefaultAdminPassword) {
			return errors.Join(ErrSeed, errors.New("admin user"))
		}

		log.Warn().Str("username", DefaultAdminUser).Msg("created default administrator, change its password")
	}

	if svc.GroupExists(adminGroup) {
		return nil
	}

	g := models.NewGroup()
	g.SetName(adminGroup)
	g.SetDescription("Administrators")
	g.SetUsers([]string{DefaultAdminUser})

	if !svc.AddGroup(g) {
		return errors.Join(ErrSeed, errors.New("admin group"))
	}

	return nil
}

func seedRole(roles access.Service, r config.Role) error {
	if access.Builtin(r.Key) {
		log.Warn().Str("role", r.Key).Msg("built-in roles can not be configured, skipped")
		return nil
	}

	if _, ok := roles.Role(r.Key); ok {
		return nil
	}

	role := models.NewRole()
	role.SetKey(r.Key)
	role.SetDescription(r.Description)
	role.SetGroups(r.Groups)

	if !roles.AddRole(role) {
		return errors.Join(ErrSeed, errors.New("role "+r.Key))
	}

	log.Info().Str("role", r.Key).Strs("groups", r.Groups).Msg("created role")

	return nil
}
