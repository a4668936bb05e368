// Package password provides password change and reset handlers.
package password

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db/controller/resettoken"
	"github.com/foundry-core/foundry/internal/web/handler"
	authmiddleware "github.com/foundry-core/foundry/internal/web/middleware/auth"
	"github.com/foundry-core/foundry/internal/web/request"
)

const (
	// ChangePath changes the password of the current user.
	ChangePath = "/password"
	// TokenPath issues a reset token, administrators only.
	TokenPath = "/password/token"
	// ResetPath sets a new password with a reset token.
	ResetPath = "/password/reset"

	storeTimeout = 10 * time.Second
)

type (
	// ChangeForm is the body of a password change.
	ChangeForm struct {
		Current  string `json:"current"  form:"current"  validate:"required"`
		Password string `json:"password" form:"password" validate:"required,min=8,max=1024"`
	}

	// TokenForm is the body of a reset token request.
	TokenForm struct {
		Username string `json:"username" form:"username" validate:"required,max=255"`
	}

	// TokenResponse carries an issued reset token.
	TokenResponse struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	}

	// ResetForm is the body of a password reset.
	ResetForm struct {
		Token    string `json:"token"    form:"token"    validate:"required"`
		Password string `json:"password" form:"password" validate:"required,min=8,max=1024"`
	}
)

// Service is the password handler service.
type Service struct {
	handler.Service
	cfg    *config.Config
	tokens *resettoken.Store
}

// Handler is the password handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the password handler. Reset routes are registered only
// with a token store.
func (s *Service) Init(app *fiber.App, cfg *config.Config, tokens *resettoken.Store) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.cfg = cfg
	s.tokens = tokens

	app.Post(ChangePath, authmiddleware.RequireAuthenticated(), s.Change)

	if tokens != nil {
		app.Post(TokenPath, authmiddleware.RequireAdmin(), s.Token)
		app.Post(ResetPath, s.Reset)
	}

	return nil
}

// Change sets a new password for the current user after checking the
// current one.
func (s *Service) Change(c *fiber.Ctx) error {
	st := request.Get(c)

	form := new(ChangeForm)
	if ok, err := parse(c, form); !ok {
		return err
	}

	username := st.Auth.CurrentUser()
	if !st.Auth.Authenticate(username, form.Current) {
		return handler.Fail(c, fiber.StatusForbidden, "current password does not match")
	}

	if !st.Auth.ChangePassword(username, form.Password) {
		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Token issues a reset token for an existing user.
func (s *Service) Token(c *fiber.Ctx) error {
	st := request.Get(c)

	form := new(TokenForm)
	if ok, err := parse(c, form); !ok {
		return err
	}

	if !st.Auth.UserExists(form.Username) {
		return handler.Fail(c, fiber.StatusNotFound, "unknown user "+form.Username)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), storeTimeout)
	defer cancel()

	t, err := s.tokens.Create(ctx, form.Username, s.cfg.Auth.ResetTokenTTL)
	if err != nil {
		log.Error().Err(err).Str("username", form.Username).Msg("failed to create reset token")
		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	return c.JSON(TokenResponse{Token: t.Token(), Expires: time.Unix(t.Expiration(), 0).UTC()})
}

// Reset consumes a reset token and sets the password of its user.
func (s *Service) Reset(c *fiber.Ctx) error {
	st := request.Get(c)

	form := new(ResetForm)
	if ok, err := parse(c, form); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), storeTimeout)
	defer cancel()

	username, err := s.tokens.Consume(ctx, form.Token)

	switch {
	case errors.Is(err, resettoken.ErrTokenNotFound), errors.Is(err, resettoken.ErrTokenExpired):
		return handler.Fail(c, fiber.StatusBadRequest, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to consume reset token")
		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	if !st.Auth.ChangePassword(username, form.Password) {
		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	log.Info().Str("username", username).Msg("password reset")

	return c.JSON(fiber.Map{"success": true})
}

// parse reads and validates the body into form. When it reports false the
// request has already been answered.
func parse(c *fiber.Ctx, form any) (bool, error) {
	if err := c.BodyParser(form); err != nil {
		return false, handler.Fail(c, fiber.StatusBadRequest, "invalid form data")
	}

	if errs := handler.Validate(form); len(errs) > 0 {
		return false, handler.Fail(c, fiber.StatusBadRequest, "invalid form data", errs...)
	}

	return true, nil
}
