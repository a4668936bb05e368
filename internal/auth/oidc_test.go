package auth_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/provider"
)

const (
	testIssuer   = "https://issuer.example.com"
	testClientID = "foundry"
)

type tokenIssuer struct {
	key *rsa.PrivateKey
}

func newTokenIssuer(t *testing.T) *tokenIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &tokenIssuer{key: key}
}

func (i *tokenIssuer) sign(t *testing.T, claims map[string]any) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: i.key}, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	obj, err := signer.Sign(payload)
	require.NoError(t, err)

	raw, err := obj.CompactSerialize()
	require.NoError(t, err)

	return raw
}

func (i *tokenIssuer) claims(extra map[string]any) map[string]any {
	c := map[string]any{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "subject-1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	for k, v := range extra {
		c[k] = v
	}

	return c
}

func (i *tokenIssuer) oidc(endpoint oauth2.Endpoint) *auth.OIDC {
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&i.key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})

	return auth.NewOIDCWithVerifier(auth.OIDCConfig{ClientID: testClientID, RedirectURL: "http://localhost/cb"}, verifier, endpoint)
}

func TestOIDCUsername(t *testing.T) {
	issuer := newTokenIssuer(t)
	o := issuer.oidc(oauth2.Endpoint{})
	ctx := context.Background()

	name, err := o.Username(ctx, issuer.sign(t, issuer.claims(map[string]any{"preferred_username": "alice"})))
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	name, err = o.Username(ctx, issuer.sign(t, issuer.claims(nil)))
	require.NoError(t, err)
	assert.Equal(t, "subject-1", name, "the subject is the fallback")

	expired := issuer.claims(map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
	_, err = o.Username(ctx, issuer.sign(t, expired))
	require.Error(t, err)

	other := newTokenIssuer(t)
	_, err = o.Username(ctx, other.sign(t, issuer.claims(nil)))
	require.Error(t, err, "tokens of other keys are rejected")

	assert.Equal(t, auth.DefaultOIDCCookie, o.CookieName())
	assert.Contains(t, o.AuthURL("state-1"), "state=state-1")
}

func TestOIDCExchange(t *testing.T) {
	issuer := newTokenIssuer(t)
	raw := issuer.sign(t, issuer.claims(map[string]any{"preferred_username": "alice"}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		idToken := raw
		if r.FormValue("code") != "good" {
			idToken = ""
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	defer srv.Close()

	o := issuer.oidc(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"})

	got, err := o.Exchange(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = o.Exchange(context.Background(), "bad")
	require.ErrorIs(t, err, auth.ErrNoIDToken)
}

func TestNewOIDCValidation(t *testing.T) {
	_, err := auth.NewOIDC(context.Background(), auth.OIDCConfig{Enabled: true})
	require.ErrorIs(t, err, provider.ErrValidation)

	_, err = auth.NewOIDC(context.Background(), auth.OIDCConfig{ProviderURL: "http://127.0.0.1:1", ClientID: "x"})
	require.ErrorIs(t, err, provider.ErrServiceConnection)
}

func TestWithSSO(t *testing.T) {
	issuer := newTokenIssuer(t)
	o := issuer.oidc(oauth2.Endpoint{})

	base := seeded(t)
	cookies := auth.MapCookies{
		auth.DefaultOIDCCookie: issuer.sign(t, issuer.claims(map[string]any{"preferred_username": "alice"})),
	}

	svc := auth.WithSSO(base, o, cookies, "")

	_, isSub := auth.AsSubgroups(svc)
	assert.True(t, isSub, "subgroup support of the base is kept")

	a := auth.New(svc, auth.Options{AdminGroup: "admins"})
	assert.True(t, a.SupportsSSO())
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, "alice", a.CurrentUser())
	assert.True(t, a.IsAdmin())

	a.Logout()
	assert.Empty(t, cookies)
	assert.False(t, a.IsAuthenticated())

	flat := auth.WithSSO(flatService{base}, o, auth.MapCookies{auth.DefaultOIDCCookie: "garbage"}, "")
	_, isSub = auth.AsSubgroups(flat)
	assert.False(t, isSub)
	assert.False(t, auth.New(flat, auth.Options{}).IsAuthenticated())
}
