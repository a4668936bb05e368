package crowd

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawParam struct {
	XMLName xml.Name
	Inner   string `xml:",innerxml"`
}

type rawOperation struct {
	XMLName xml.Name
	Params  []rawParam `xml:",any"`
}

type rawEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Operation rawOperation `xml:",any"`
	} `xml:"Body"`
}

func decodeParam(t *testing.T, p rawParam, v any) {
	t.Helper()
	require.NoError(t, xml.Unmarshal([]byte("<p>"+p.Inner+"</p>"), v))
}

func textParam(t *testing.T, p rawParam) string {
	t.Helper()

	var v struct {
		Text string `xml:",chardata"`
	}

	decodeParam(t, p, &v)

	return v.Text
}

// fakeServer is a minimal Crowd security server.
type fakeServer struct {
	t *testing.T

	mu         sync.Mutex
	appLogins  int
	appToken   string
	passwords  map[string]string
	tokens     map[string]string
	operations []string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()

	f := &fakeServer{
		t:         t,
		passwords: map[string]string{"alice": "secret"},
		tokens:    make(map[string]string),
	}

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeServer) expireAppToken() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.appToken = "expired"
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)

	var env rawEnvelope
	require.NoError(f.t, xml.Unmarshal(body, &env))

	op := env.Body.Operation
	name := op.XMLName.Local

	f.mu.Lock()
	defer f.mu.Unlock()

	f.operations = append(f.operations, name)

	if name == "authenticateApplication" {
		var ctx applicationAuthenticationContext
		decodeParam(f.t, op.Params[0], &ctx)

		if ctx.Name != "foundry" || ctx.Credential.Credential != "app-secret" {
			fault(w, "InvalidAuthenticationException: bad application credentials")
			return
		}

		f.appLogins++
		f.appToken = fmt.Sprintf("app-%d", f.appLogins)
		respond(w, name, "<out><name>foundry</name><token>"+f.appToken+"</token></out>")

		return
	}

	var app AuthenticatedToken
	decodeParam(f.t, op.Params[0], &app)

	if app.Token != f.appToken {
		fault(w, "InvalidAuthorizationToken: application token expired")
		return
	}

	switch name {
	case "authenticatePrincipal":
		var ctx userAuthenticationContext
		decodeParam(f.t, op.Params[1], &ctx)

		if f.passwords[ctx.Name] != ctx.Credential.Credential || ctx.Credential.Credential == "" {
			fault(w, "InvalidAuthenticationException: bad credentials")
			return
		}

		token := "tok-" + ctx.Name
		f.tokens[token] = ctx.Name
		respond(w, name, "<out>"+token+"</out>")
	case "isValidPrincipalToken":
		_, ok := f.tokens[textParam(f.t, op.Params[1])]
		respond(w, name, fmt.Sprintf("<out>%t</out>", ok))
	case "findPrincipalByToken":
		user, ok := f.tokens[textParam(f.t, op.Params[1])]
		if !ok {
			fault(w, "InvalidTokenException")
			return
		}

		respond(w, name, "<out><name>"+user+"</name><active>true</active><attributes>"+
			"<SOAPAttribute><name>mail</name><values><string>"+user+"@example.com</string></values></SOAPAttribute>"+
			"</attributes></out>")
	case "invalidatePrincipalToken":
		delete(f.tokens, textParam(f.t, op.Params[1]))
		respond(w, name, "")
	case "findAllPrincipalNames":
		respond(w, name, "<out><string>alice</string><string>bob</string></out>")
	default:
		fault(w, "OperationNotSupported")
	}
}

func respond(w http.ResponseWriter, op, out string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+
		`<ns1:%sResponse xmlns:ns1="urn:SecurityServer">%s</ns1:%sResponse>`+
		`</soap:Body></soap:Envelope>`, op, out, op)
}

func fault(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+
		`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>%s</faultstring></soap:Fault>`+
		`</soap:Body></soap:Envelope>`, msg)
}

func dial(t *testing.T, url string) *SOAPClient {
	t.Helper()

	c, err := Dial(Options{URL: url, AppName: "foundry", AppCredential: "app-secret"})
	require.NoError(t, err)

	return c
}

func TestDialRejectsApplication(t *testing.T) {
	_, srv := newFakeServer(t)

	_, err := Dial(Options{URL: srv.URL, AppName: "foundry", AppCredential: "wrong"})
	require.ErrorIs(t, err, ErrApplicationAuthentication)
	assert.True(t, IsFault(err, "InvalidAuthenticationException"))
}

func TestDialUnreachable(t *testing.T) {
	_, srv := newFakeServer(t)
	url := srv.URL
	srv.Close()

	_, err := Dial(Options{URL: url, AppName: "foundry", AppCredential: "app-secret"})
	require.ErrorIs(t, err, ErrApplicationAuthentication)
}

func TestPrincipalTokenLifecycle(t *testing.T) {
	_, srv := newFakeServer(t)
	c := dial(t, srv.URL)

	bad := c.AuthenticatePrincipal("alice", "wrong", nil)
	assert.False(t, bad.OK())
	assert.True(t, IsFault(bad.Fault, "InvalidAuthenticationException"))

	res := c.AuthenticatePrincipal("alice", "secret", []ValidationFactor{{Name: "remote_address", Value: "127.0.0.1"}})
	require.True(t, res.OK(), "%v", res.Fault)
	assert.Equal(t, "tok-alice", res.Value)

	valid := c.IsValidPrincipalToken(res.Value, nil)
	require.True(t, valid.OK())
	assert.True(t, valid.Value)

	principal := c.FindPrincipalByToken(res.Value)
	require.True(t, principal.OK())
	assert.Equal(t, "alice", principal.Value.Name)
	assert.True(t, principal.Value.Active)
	assert.Equal(t, "alice@example.com", principal.Value.Attribute(AttrEmail))
	assert.Empty(t, principal.Value.Attribute(AttrSurname))

	require.True(t, c.InvalidatePrincipalToken(res.Value).OK())

	valid = c.IsValidPrincipalToken(res.Value, nil)
	require.True(t, valid.OK())
	assert.False(t, valid.Value)
}

func TestExpiredApplicationTokenIsRenewed(t *testing.T) {
	f, srv := newFakeServer(t)
	c := dial(t, srv.URL)

	f.expireAppToken()

	res := c.FindAllPrincipalNames()
	require.True(t, res.OK(), "%v", res.Fault)
	assert.Equal(t, []string{"alice", "bob"}, res.Value)
	assert.Equal(t, 2, f.appLogins)
	assert.Equal(t, []string{
		"authenticateApplication",
		"findAllPrincipalNames",
		"authenticateApplication",
		"findAllPrincipalNames",
	}, f.operations)
}

func TestUnsupportedOperationIsFault(t *testing.T) {
	_, srv := newFakeServer(t)
	c := dial(t, srv.URL)

	res := c.RemoveGroup("admins")
	assert.False(t, res.OK())
	assert.True(t, IsFault(res.Fault, "OperationNotSupported"))
	assert.False(t, IsFault(nil, "OperationNotSupported"))
}

func TestNewOperationEncodesParams(t *testing.T) {
	op, err := newOperation("findGroupByName", AuthenticatedToken{Name: "app", Token: "t"}, "a<b")
	require.NoError(t, err)

	out, err := xml.Marshal(op)
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, `<findGroupByName xmlns="urn:SecurityServer">`), s)
	assert.Contains(t, s, "<in0><name>app</name><token>t</token></in0>")
	assert.Contains(t, s, "<in1>a&lt;b</in1>")
}
