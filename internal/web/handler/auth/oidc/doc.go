// Package oidc provides handlers for the OpenID Connect (OIDC) authorization
// code flow.
//
// The flow includes:
//   - Login initiation with CSRF protection via a state token kept in the session
//   - Authorization callback handling with ID token verification
//   - Storing the raw ID token in a cookie, where the OIDC decorated
//     authentication service picks it up as single sign-on session
//
// Example usage:
//
//	_ = oidc.Handler.Init(app, cfg, provider)
//
//	// Users can then access:
//	// GET  /auth/oidc/login    - Initiate OIDC login flow
//	// GET  /auth/oidc/callback - Handle provider callback
package oidc
