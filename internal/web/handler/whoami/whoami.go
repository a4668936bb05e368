// Package whoami reports the logged in user.
package whoami

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/web/handler"
	authmiddleware "github.com/foundry-core/foundry/internal/web/middleware/auth"
	"github.com/foundry-core/foundry/internal/web/request"
)

// Path is the path to the whoami endpoint.
const Path = "/whoami"

// Service is the whoami handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the whoami handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the whoami handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.cfg = cfg

	app.Get(Path, authmiddleware.RequireAuthenticated(), s.Get)

	return nil
}

// Get returns the current user, its groups and admin flag.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.JSON(handler.CurrentUser(request.Get(c)))
}
