// Package auth provides route guards for the web application.
//
// The guards read the per-request auth state prepared by the session
// middleware and answer with a JSON error when the current user may not
// proceed:
//   - RequireAuthenticated rejects anonymous requests with 401
//   - RequireRole rejects users lacking a role with 403
//   - RequireAdmin rejects users outside the admin group with 403
//
// Usage:
//
//	app.Get("/roles", authmiddleware.RequireRole(access.RoleAdmin), handler)
package auth
