// Package logout provides the HTTP handler ending a session.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/web/handler"
	"github.com/foundry-core/foundry/internal/web/request"
)

// Path is the path to the logout endpoint.
const Path = "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the logout handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.cfg = cfg

	app.Post(Path, s.Logout)

	return nil
}

// Logout forgets the current user and deletes the session.
func (s *Service) Logout(c *fiber.Ctx) error {
	st := request.Get(c)

	st.Auth.Logout()
	st.Discard()

	return c.JSON(fiber.Map{"success": true})
}
