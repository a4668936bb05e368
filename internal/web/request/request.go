// Package request carries the auth state of one HTTP request through the
// fiber handler chain.
package request

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foundry-core/foundry/internal/access"
	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/session"
)

const localsKey = "foundry.request"

// State is built fresh for every request. Auth and Access are restored
// from the session before the handlers run and saved after them.
type State struct {
	Auth      *auth.Auth
	Access    *access.Access
	Session   *session.Data
	SessionID string

	renew   bool
	discard bool
}

// Renew asks for a new session id when the session is saved, e.g. after a
// login.
func (s *State) Renew() { s.renew = true }

// Renewed reports whether Renew was called.
func (s *State) Renewed() bool { return s.renew }

// Discard asks for the session to be deleted instead of saved.
func (s *State) Discard() { s.discard = true }

// Discarded reports whether Discard was called.
func (s *State) Discarded() bool { return s.discard }

// Set stores st in the request locals.
func Set(c *fiber.Ctx, st *State) {
	c.Locals(localsKey, st)
}

// Get returns the state of the request, or nil outside the session middleware.
func Get(c *fiber.Ctx) *State {
	st, _ := c.Locals(localsKey).(*State)
	return st
}
