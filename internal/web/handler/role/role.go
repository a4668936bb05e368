// Package role answers role checks for the current or a named user.
package role

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/access"
	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/web/handler"
	authmiddleware "github.com/foundry-core/foundry/internal/web/middleware/auth"
	"github.com/foundry-core/foundry/internal/web/request"
)

// Path is the path of the role routes.
const Path = "/roles"

// Check is the response of a role check.
type Check struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Granted  bool   `json:"granted"`
}

// Entry describes one role in the listing.
type Entry struct {
	Key         string   `json:"key"`
	Description string   `json:"description,omitempty"`
	Groups      []string `json:"groups"`
	Builtin     bool     `json:"builtin"`
}

// Service is the role handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the role handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the role handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.cfg = cfg

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, authmiddleware.RequireRole(access.RoleAdmin), s.List)
		router.Get("/:key", s.Check)
	})

	return nil
}

// List returns every role, ordered by key.
func (s *Service) List(c *fiber.Ctx) error {
	roles := request.Get(c).Access.Roles()

	out := make([]Entry, 0, len(roles))
	for _, key := range slices.Sorted(maps.Keys(roles)) {
		r := roles[key]

		groups := r.Groups()
		if groups == nil {
			groups = []string{}
		}

		out = append(out, Entry{
			Key:         key,
			Description: r.Description(),
			Groups:      groups,
			Builtin:     access.Builtin(key),
		})
	}

	return c.JSON(out)
}

// Check reports whether a user holds the role :key. Without ?username=
// the current user is checked; checking somebody else needs the admin role.
func (s *Service) Check(c *fiber.Ctx) error {
	st := request.Get(c)
	key := strings.TrimSpace(c.Params("key"))
	username := strings.TrimSpace(c.Query("username"))

	if username != "" && username != st.Auth.CurrentUser() && !st.Access.HasRole(access.RoleAdmin, "") {
		log.Warn().Str("username", st.Auth.CurrentUser()).Str("target", username).Msg("role check for another user denied")

		return handler.Fail(c, fiber.StatusForbidden, handler.MsgForbidden)
	}

	if _, ok := st.Access.Role(key); !ok {
		return handler.Fail(c, fiber.StatusNotFound, "unknown role "+key)
	}

	if username == "" {
		username = st.Auth.CurrentUser()
	}

	return c.JSON(Check{
		Role:     key,
		Username: username,
		Granted:  st.Access.HasRole(key, username),
	})
}
