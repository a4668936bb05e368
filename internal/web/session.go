package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/access"
	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/session"
	"github.com/foundry-core/foundry/internal/web/request"
)

// sessionMiddleware builds the request state, restores the façade caches
// from the session and saves them once the handlers are done.
func (s *Service) sessionMiddleware(c *fiber.Ctx) error {
	cookies := request.NewCookies(c, s.cfg.Webserver.SecureCookies)

	a := auth.New(s.deps.Auth(cookies), auth.Options{
		AdminGroup: s.cfg.Auth.AdminGroup,
		Hasher:     s.deps.Hasher,
	})

	st := &request.State{
		Auth:      a,
		Session:   &session.Data{},
		SessionID: c.Cookies(s.cfg.Webserver.Session.CookieName),
	}

	s.restore(st)

	st.Access = access.New(s.deps.Access, a)
	request.Set(c, st)

	err := c.Next()

	s.persist(c, st)

	return err
}

func (s *Service) restore(st *request.State) {
	data, err := s.deps.Sessions.Load(st.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.Error().Err(err).Msg("failed to read session")
		}

		st.SessionID = ""

		return
	}

	st.Session = data

	if len(data.Auth) == 0 {
		return
	}

	if err = st.Auth.RestoreWithin(data.Auth, s.cfg.Auth.MembershipTTL); err != nil {
		log.Warn().Err(err).Msg("discarding auth snapshot")
	}
}

func (s *Service) persist(c *fiber.Ctx, st *request.State) {
	cookieName := s.cfg.Webserver.Session.CookieName

	if st.Discarded() {
		if st.SessionID != "" {
			if err := s.deps.Sessions.Delete(st.SessionID); err != nil {
				log.Error().Err(err).Msg("failed to delete session")
			}
		}

		request.NewCookies(c, s.cfg.Webserver.SecureCookies).ClearCookie(cookieName)

		return
	}

	// anonymous visitors without pending state get no session
	if st.SessionID == "" && st.Session.State == "" && !st.Auth.IsAuthenticated() {
		return
	}

	if st.Renewed() && st.SessionID != "" {
		if err := s.deps.Sessions.Delete(st.SessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}

		st.SessionID = ""
		st.Session.CreatedAt = time.Time{}
	}

	if st.SessionID == "" {
		id, err := session.GenerateID()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate session ID")
			return
		}

		st.SessionID = id
	}

	snapshot, err := st.Auth.Snapshot()
	if err != nil {
		log.Error().Err(err).Msg("failed to snapshot auth state")
		return
	}

	st.Session.Auth = snapshot

	if err = s.deps.Sessions.Save(st.SessionID, st.Session); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return
	}

	c.Cookie(&fiber.Cookie{
		Name:     cookieName,
		Value:    st.SessionID,
		Path:     "/",
		MaxAge:   int(s.deps.Sessions.Expiry().Seconds()),
		Secure:   s.cfg.Webserver.SecureCookies,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
