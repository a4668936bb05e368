package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/web"
	"github.com/foundry-core/foundry/internal/web/handler"
	oidchandler "github.com/foundry-core/foundry/internal/web/handler/auth/oidc"
)

const (
	idpURL     = "https://idp.example.com/authorize"
	goodCode   = "good-code"
	aliceToken = "raw-id-token-alice"
)

var errBadCode = errors.New("invalid_grant")

// fakeFlow stands in for an OIDC provider: one code yields alice's token.
type fakeFlow struct{}

func (fakeFlow) AuthURL(state string) string {
	return idpURL + "?state=" + url.QueryEscape(state)
}

func (fakeFlow) Exchange(_ context.Context, code string) (string, error) {
	if code != goodCode {
		return "", errBadCode
	}

	return aliceToken, nil
}

func (fakeFlow) CookieName() string { return auth.DefaultOIDCCookie }

func (fakeFlow) Username(_ context.Context, raw string) (string, error) {
	if raw != aliceToken {
		return "", errBadCode
	}

	return "alice", nil
}

func newOIDCServer(t *testing.T) *testServer {
	t.Helper()

	return newTestServer(t, func(svc *auth.MemoryService) web.Deps {
		return web.Deps{
			Auth: func(cookies auth.Cookies) auth.Service {
				return auth.WithSSO(svc, fakeFlow{}, cookies, auth.DefaultOIDCCookie)
			},
			OIDC: fakeFlow{},
		}
	})
}

func startLogin(t *testing.T, s *testServer) (string, *http.Cookie) {
	t.Helper()

	resp := s.do(t, fiber.MethodGet, oidchandler.LoginPath, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)

	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	sid := findCookie(resp, cookieName)
	require.NotNil(t, sid, "the state is kept in a session")

	return state, sid
}

func TestOIDCFlow(t *testing.T) {
	s := newOIDCServer(t)
	state, sid := startLogin(t, s)

	resp := s.do(t, fiber.MethodGet, oidchandler.CallbackPath+"?code="+goodCode+"&state="+url.QueryEscape(state), nil, sid)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, oidchandler.AfterLoginPath, resp.Header.Get(fiber.HeaderLocation))

	token := findCookie(resp, auth.DefaultOIDCCookie)
	require.NotNil(t, token)
	assert.Equal(t, aliceToken, token.Value)

	renewed := findCookie(resp, cookieName)
	require.NotNil(t, renewed)
	assert.NotEqual(t, sid.Value, renewed.Value)

	resp = s.do(t, fiber.MethodGet, "/whoami", nil, renewed, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	me := decode[handler.UserResponse](t, resp)
	assert.Equal(t, "alice", me.Username)
	assert.True(t, me.Admin)

	resp = s.do(t, fiber.MethodPost, "/logout", nil, renewed, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cleared := findCookie(resp, auth.DefaultOIDCCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestOIDCCallbackRejects(t *testing.T) {
	s := newOIDCServer(t)

	resp := s.do(t, fiber.MethodGet, oidchandler.CallbackPath+"?code="+goodCode, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "state is required")

	_, sid := startLogin(t, s)
	resp = s.do(t, fiber.MethodGet, oidchandler.CallbackPath+"?code="+goodCode+"&state=forged", nil, sid)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	state, sid := startLogin(t, s)
	resp = s.do(t, fiber.MethodGet, oidchandler.CallbackPath+"?code=bad&state="+url.QueryEscape(state), nil, sid)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, fiber.MethodGet, oidchandler.CallbackPath+"?code="+goodCode+"&state="+url.QueryEscape(state), nil, sid)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "a state is used once")
}

func TestOIDCRoutesNeedProvider(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, fiber.MethodGet, oidchandler.LoginPath, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
