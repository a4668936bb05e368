// Package web serves the JSON HTTP surface: login, logout, the current user
// and role checks. Every request gets fresh Auth and Access façades whose
// caches are restored from and saved to the visitor's session.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/access"
	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db/controller/resettoken"
	fiberlogger "github.com/foundry-core/foundry/internal/logger/adapter/fiber"
	"github.com/foundry-core/foundry/internal/session"
	"github.com/foundry-core/foundry/internal/web/handler"
	oidchandler "github.com/foundry-core/foundry/internal/web/handler/auth/oidc"
	"github.com/foundry-core/foundry/internal/web/handler/directory"
	"github.com/foundry-core/foundry/internal/web/handler/login"
	"github.com/foundry-core/foundry/internal/web/handler/logout"
	"github.com/foundry-core/foundry/internal/web/handler/password"
	"github.com/foundry-core/foundry/internal/web/handler/role"
	"github.com/foundry-core/foundry/internal/web/handler/whoami"
	"github.com/foundry-core/foundry/internal/web/request"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes the prometheus metrics.
	MetricsPath = "/metrics"
)

// AuthFactory returns the authentication service for one request. SSO
// providers read and write their session cookie through cookies.
type AuthFactory func(cookies auth.Cookies) auth.Service

// Deps are the services the web layer is built on.
type Deps struct {
	Auth     AuthFactory
	Access   access.Service
	Hasher   *auth.Hasher
	Sessions *session.Store
	// ResetTokens enables the password reset routes when set.
	ResetTokens *resettoken.Store
	// OIDC enables the authorization code flow routes when set.
	OIDC oidchandler.Flow
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	deps         Deps
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	// Wait interrupt or shutdown request through /shutdown
	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if deps.Auth == nil || deps.Access == nil || deps.Sessions == nil {
		return nil, errors.New("auth, access and session services are required")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			StrictRouting:  !cfg.Webserver.CleanPath,
		},
	)

	service := &Service{
		App:          app,
		cfg:          cfg,
		deps:         deps,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
		User:          currentUser,
	}))

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(service.sessionMiddleware)

	handlers := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&whoami.Handler,
		&role.Handler,
		&directory.Handler,
	}

	for _, h := range handlers {
		if err := h.Init(app, cfg); err != nil {
			return nil, err
		}
	}

	if err := password.Handler.Init(app, cfg, deps.ResetTokens); err != nil {
		return nil, err
	}

	if deps.OIDC != nil {
		if err := oidchandler.Handler.Init(app, cfg, deps.OIDC); err != nil {
			return nil, err
		}
	}

	return service, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

func currentUser(c *fiber.Ctx) string {
	st := request.Get(c)
	if st == nil || st.Auth == nil {
		return ""
	}

	return st.Auth.CurrentUser()
}
