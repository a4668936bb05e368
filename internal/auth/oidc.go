package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/foundry-core/foundry/internal/provider"
)

const (
	oidcService = "oidc"

	// DefaultOIDCCookie carries the raw ID token between requests.
	DefaultOIDCCookie = "id_token"
	// DefaultUsernameClaim names the ID token claim used as username.
	DefaultUsernameClaim = "preferred_username"

	verifyTimeout = 10 * time.Second
)

// OIDCConfig holds OpenID Connect (OIDC) single sign-on settings.
type OIDCConfig struct {
	// Enabled wraps the authentication service with OIDC single sign-on.
	Enabled bool
	// ProviderURL is the OIDC provider's discovery URL (e.g., "https://accounts.google.com").
	ProviderURL string `validate:"required,url"`
	// ClientID is the OAuth2 client identifier.
	ClientID string `validate:"required"`
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string
	// RedirectURL is the OAuth2 callback URL where the provider redirects after authentication.
	RedirectURL string
	// Scopes are the OAuth2 scopes to request (default: ["openid", "profile", "email"]).
	Scopes []string
	// CookieName is the cookie holding the ID token (default: "id_token").
	CookieName string
	// UsernameClaim is the ID token claim holding the username (default: "preferred_username").
	// The subject is used when the claim is missing.
	UsernameClaim string
}

// IdentityVerifier resolves a raw ID token to a username.
type IdentityVerifier interface {
	Username(ctx context.Context, rawIDToken string) (string, error)
}

// OIDC verifies ID tokens of one provider and runs its authorization code flow.
type OIDC struct {
	config   OIDCConfig
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
}

var _ IdentityVerifier = (*OIDC)(nil)

// NewOIDC discovers the provider configuration.
func NewOIDC(ctx context.Context, config OIDCConfig) (*OIDC, error) {
	if err := provider.Validate(oidcService, config); err != nil {
		return nil, err
	}

	p, err := oidc.NewProvider(ctx, config.ProviderURL)
	if err != nil {
		return nil, provider.Connection(oidcService, fmt.Errorf("failed to create OIDC provider: %w", err))
	}

	verifier := p.Verifier(&oidc.Config{
		ClientID: config.ClientID,
	})

	return NewOIDCWithVerifier(config, verifier, p.Endpoint()), nil
}

// NewOIDCWithVerifier builds an OIDC from an existing verifier and endpoint.
func NewOIDCWithVerifier(config OIDCConfig, verifier *oidc.IDTokenVerifier, endpoint oauth2.Endpoint) *OIDC {
	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	if config.CookieName == "" {
		config.CookieName = DefaultOIDCCookie
	}

	if config.UsernameClaim == "" {
		config.UsernameClaim = DefaultUsernameClaim
	}

	return &OIDC{
		config:   config,
		verifier: verifier,
		oauth2: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
	}
}

// CookieName returns the ID token cookie name.
func (o *OIDC) CookieName() string {
	return o.config.CookieName
}

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthURL returns the OIDC authorization URL with state token.
func (o *OIDC) AuthURL(state string) string {
	return o.oauth2.AuthCodeURL(state)
}

// Exchange trades an authorization code for the raw ID token.
func (o *OIDC) Exchange(ctx context.Context, code string) (string, error) {
	token, err := o.oauth2.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", ErrNoIDToken
	}

	if _, err = o.Username(ctx, raw); err != nil {
		return "", err
	}

	return raw, nil
}

// Username verifies rawIDToken and returns its username claim.
func (o *OIDC) Username(ctx context.Context, rawIDToken string) (string, error) {
	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims map[string]any
	if err = idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("failed to parse claims: %w", err)
	}

	if name, ok := claims[o.config.UsernameClaim].(string); ok && name != "" {
		return name, nil
	}

	return idToken.Subject, nil
}

// oidcSSO adds single sign-on through an ID token cookie to a Service.
type oidcSSO struct {
	Service

	identity   IdentityVerifier
	cookies    Cookies
	cookieName string
}

type oidcSubgroupSSO struct {
	*oidcSSO
	Subgroups
}

// WithSSO returns base extended with the SSO capability: the ID token in
// the cookieName cookie identifies the user. Subgroup support of base is kept.
func WithSSO(base Service, identity IdentityVerifier, cookies Cookies, cookieName string) Service {
	if cookies == nil {
		cookies = NoCookies{}
	}

	if cookieName == "" {
		cookieName = DefaultOIDCCookie
	}

	s := &oidcSSO{Service: base, identity: identity, cookies: cookies, cookieName: cookieName}

	if sub, ok := AsSubgroups(base); ok {
		return &oidcSubgroupSSO{oidcSSO: s, Subgroups: sub}
	}

	return s
}

// CheckSSO verifies the ID token cookie.
func (s *oidcSSO) CheckSSO() (string, bool) {
	raw := s.cookies.Cookie(s.cookieName)
	if raw == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	username, err := s.identity.Username(ctx, raw)
	if err != nil {
		log.Debug().Err(err).Msg("oidc token rejected")
		return "", false
	}

	return username, username != ""
}

// LogoutSSO clears the ID token cookie.
func (s *oidcSSO) LogoutSSO() {
	s.cookies.ClearCookie(s.cookieName)
}
