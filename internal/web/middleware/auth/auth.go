package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/web/handler"
	"github.com/foundry-core/foundry/internal/web/request"
)

// RequireAuthenticated ensures somebody is logged in.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := request.Get(c)
		if st == nil || !st.Auth.IsAuthenticated() {
			return handler.Fail(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
		}

		return c.Next()
	}
}

// RequireRole creates Fiber middleware that requires the current user to hold role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := request.Get(c)
		if st == nil {
			return handler.Fail(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
		}

		if st.Access.HasRole(role, "") {
			return c.Next()
		}

		if !st.Auth.IsAuthenticated() {
			return handler.Fail(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
		}

		log.Warn().Str("username", st.Auth.CurrentUser()).Str("role", role).
			Msg("user lacks required role")

		return handler.Fail(c, fiber.StatusForbidden, handler.MsgForbidden)
	}
}

// RequireAdmin creates Fiber middleware that requires the current user to
// be a member of the admin group.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := request.Get(c)
		if st == nil || !st.Auth.IsAuthenticated() {
			return handler.Fail(c, fiber.StatusUnauthorized, handler.MsgUnauthorized)
		}

		if !st.Auth.IsAdmin() {
			log.Warn().Str("username", st.Auth.CurrentUser()).Msg("user is not an administrator")

			return handler.Fail(c, fiber.StatusForbidden, handler.MsgForbidden)
		}

		return c.Next()
	}
}
