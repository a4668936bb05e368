package oidc

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/web/handler"
	"github.com/foundry-core/foundry/internal/web/request"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// AfterLoginPath is where the callback redirects to.
	AfterLoginPath = "/whoami"

	exchangeTimeout = 10 * time.Second
)

// Flow is the part of an OIDC provider the handlers use.
type Flow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	CookieName() string
}

var _ Flow = (*auth.OIDC)(nil)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	flow Flow
}

// Handler is the OIDC handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the OIDC handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, flow Flow) error {
	if app == nil || cfg == nil || flow == nil {
		return errors.New("app, cfg or oidc provider is nil")
	}

	s.cfg = cfg
	s.flow = flow

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	log.Info().Msg("OIDC authentication routes registered")

	return nil
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate state token")
		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgInternal)
	}

	request.Get(c).Session.State = state

	return c.Redirect(s.flow.AuthURL(state))
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	st := request.Get(c)

	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("Missing code or state in OIDC callback")
		return handler.Fail(c, fiber.StatusBadRequest, "invalid callback parameters")
	}

	expected := st.Session.State
	st.Session.State = ""

	if expected == "" || state != expected {
		log.Error().Msg("Invalid state token")
		return handler.Fail(c, fiber.StatusBadRequest, "invalid state token")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), exchangeTimeout)
	defer cancel()

	raw, err := s.flow.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("OIDC authentication failed")
		return handler.Fail(c, fiber.StatusUnauthorized, "authentication failed")
	}

	request.NewCookies(c, s.cfg.Webserver.SecureCookies).SetCookie(s.flow.CookieName(), raw)
	st.Renew()

	return c.Redirect(AfterLoginPath)
}
