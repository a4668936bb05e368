package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/web/handler"
	"github.com/foundry-core/foundry/internal/web/request"
)

const (
	// Path is the path to the login endpoint.
	Path = "/login"
)

// Form is the login request body, sent as JSON or as a form.
type Form struct {
	Username string `json:"username" form:"username" validate:"required,max=255"`
	Password string `json:"password" form:"password" validate:"required,max=1024"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the login handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.cfg = cfg

	app.Post(Path, s.Post)

	return nil
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	st := request.Get(c)

	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	if errs := handler.Validate(form); len(errs) > 0 {
		return handler.Fail(c, fiber.StatusBadRequest, ErrInvalidFormData.Error(), errs...)
	}

	if !st.Auth.Login(form.Username, form.Password) {
		log.Warn().Str("username", form.Username).Str("IP", c.IP()).Msg("login rejected")

		return handler.Fail(c, fiber.StatusUnauthorized, ErrInvalidCredentials.Error())
	}

	// new session id for the new identity
	st.Renew()

	log.Info().Str("username", form.Username).Msg("user logged in")

	return c.JSON(handler.CurrentUser(st))
}
