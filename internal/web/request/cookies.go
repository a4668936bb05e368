package request

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/foundry-core/foundry/internal/auth"
)

// Cookies exposes the cookies of a fiber request to SSO providers.
type Cookies struct {
	ctx    *fiber.Ctx
	secure bool
}

var _ auth.Cookies = (*Cookies)(nil)

// NewCookies wraps c. Cookies set through it carry the Secure flag when
// secure is true.
func NewCookies(c *fiber.Ctx, secure bool) *Cookies {
	return &Cookies{ctx: c, secure: secure}
}

// Cookie returns the request cookie name.
func (k *Cookies) Cookie(name string) string {
	return k.ctx.Cookies(name)
}

// SetCookie sets a session scoped, http only cookie on the response.
func (k *Cookies) SetCookie(name, value string) {
	k.ctx.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   k.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the cookie name on the client.
func (k *Cookies) ClearCookie(name string) {
	k.ctx.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   k.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
