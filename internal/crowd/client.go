// Package crowd is a SOAP client for the Atlassian Crowd security server.
//
// Every remote operation returns a Result: faults and transport failures
// are values, so callers decide how a failed call degrades.
package crowd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hooklift/gowsdl/soap"
	"github.com/rs/zerolog/log"
)

// faultInvalidToken marks a fault raised for an expired application token.
const faultInvalidToken = "InvalidAuthorizationToken"

// ErrApplicationAuthentication is returned when the application credentials are rejected.
var ErrApplicationAuthentication = errors.New("crowd application authentication failed")

// Client is the set of Crowd operations used for authentication and
// directory management.
type Client interface {
	AuthenticatePrincipal(username, password string, factors []ValidationFactor) Result[string]
	IsValidPrincipalToken(token string, factors []ValidationFactor) Result[bool]
	InvalidatePrincipalToken(token string) Result[Empty]
	FindPrincipalByToken(token string) Result[Principal]
	FindPrincipalByName(name string) Result[Principal]
	FindAllPrincipalNames() Result[[]string]
	AddPrincipal(principal Principal, password string) Result[Principal]
	UpdatePrincipalAttribute(name string, attribute Attribute) Result[Empty]
	UpdatePrincipalCredential(name, password string) Result[Empty]
	RemovePrincipal(name string) Result[Empty]
	FindAllGroupNames() Result[[]string]
	FindGroupByName(name string) Result[Group]
	FindGroupMemberships(principal string) Result[[]string]
	AddGroup(group Group) Result[Group]
	RemoveGroup(name string) Result[Empty]
	AddPrincipalToGroup(principal, group string) Result[Empty]
	RemovePrincipalFromGroup(principal, group string) Result[Empty]
}

// Options configure Dial.
type Options struct {
	URL           string
	AppName       string
	AppCredential string
	Timeout       time.Duration
}

// SOAPClient talks to a Crowd server. The application token obtained at
// Dial is renewed once when the server reports it expired.
type SOAPClient struct {
	mu    sync.Mutex
	soap  *soap.Client
	opts  Options
	token AuthenticatedToken
}

var _ Client = (*SOAPClient)(nil)

// Dial authenticates the application against the server at opts.URL.
func Dial(opts Options) (*SOAPClient, error) {
	var soapOpts []soap.Option
	if opts.Timeout > 0 {
		soapOpts = append(soapOpts, soap.WithTimeout(opts.Timeout))
	}

	c := &SOAPClient{
		soap: soap.NewClient(opts.URL, soapOpts...),
		opts: opts,
	}

	if err := c.authenticate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *SOAPClient) authenticate() error {
	ctx := applicationAuthenticationContext{
		Credential: PasswordCredential{Credential: c.opts.AppCredential},
		Name:       c.opts.AppName,
	}

	op, err := newOperation("authenticateApplication", ctx)
	if err != nil {
		return err
	}

	var resp response[AuthenticatedToken]

	if err = c.soap.Call("", op, &resp); err != nil {
		return fmt.Errorf("%w: %w", ErrApplicationAuthentication, err)
	}

	c.mu.Lock()
	c.token = resp.Out
	c.mu.Unlock()

	log.Debug().Str("application", c.opts.AppName).Msg("crowd application authenticated")

	return nil
}

func (c *SOAPClient) appToken() AuthenticatedToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.token
}

// operation is a request element whose parameters are encoded in0, in1, ...
type operation struct {
	XMLName xml.Name
	Params  string `xml:",innerxml"`
}

func newOperation(name string, params ...any) (*operation, error) {
	var buf bytes.Buffer

	enc := xml.NewEncoder(&buf)

	for i, p := range params {
		start := xml.StartElement{Name: xml.Name{Local: fmt.Sprintf("in%d", i)}}
		if err := enc.EncodeElement(p, start); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	return &operation{XMLName: xml.Name{Space: Namespace, Local: name}, Params: buf.String()}, nil
}

type response[T any] struct {
	XMLName xml.Name
	Out     T `xml:"out"`
}

// invoke calls name with the application token prepended to params. An
// expired token is renewed and the call retried once.
func invoke[T any](c *SOAPClient, name string, params ...any) Result[T] {
	for attempt := 0; ; attempt++ {
		op, err := newOperation(name, append([]any{c.appToken()}, params...)...)
		if err != nil {
			return Result[T]{Fault: err}
		}

		var resp response[T]

		err = c.soap.Call("", op, &resp)
		if err == nil {
			return Result[T]{Value: resp.Out}
		}

		if attempt == 0 && IsFault(err, faultInvalidToken) {
			if errAuth := c.authenticate(); errAuth == nil {
				continue
			}
		}

		log.Debug().Err(err).Str("operation", name).Msg("crowd call failed")

		return Result[T]{Fault: err}
	}
}

// IsFault reports whether err is a remote fault naming kind.
func IsFault(err error, kind string) bool {
	return err != nil && strings.Contains(err.Error(), kind)
}

func names(r Result[Names]) Result[[]string] {
	return Result[[]string]{Value: r.Value.Names, Fault: r.Fault}
}

// AuthenticatePrincipal returns a principal token for valid credentials.
func (c *SOAPClient) AuthenticatePrincipal(username, password string, factors []ValidationFactor) Result[string] {
	return invoke[string](c, "authenticatePrincipal", userAuthenticationContext{
		Application:       c.opts.AppName,
		Credential:        PasswordCredential{Credential: password},
		Name:              username,
		ValidationFactors: factors,
	})
}

// IsValidPrincipalToken implements Client.
func (c *SOAPClient) IsValidPrincipalToken(token string, factors []ValidationFactor) Result[bool] {
	return invoke[bool](c, "isValidPrincipalToken", token, struct {
		Factors []ValidationFactor `xml:"ValidationFactor"`
	}{factors})
}

// InvalidatePrincipalToken implements Client.
func (c *SOAPClient) InvalidatePrincipalToken(token string) Result[Empty] {
	return invoke[Empty](c, "invalidatePrincipalToken", token)
}

// FindPrincipalByToken implements Client.
func (c *SOAPClient) FindPrincipalByToken(token string) Result[Principal] {
	return invoke[Principal](c, "findPrincipalByToken", token)
}

// FindPrincipalByName implements Client.
func (c *SOAPClient) FindPrincipalByName(name string) Result[Principal] {
	return invoke[Principal](c, "findPrincipalByName", name)
}

// FindAllPrincipalNames implements Client.
func (c *SOAPClient) FindAllPrincipalNames() Result[[]string] {
	return names(invoke[Names](c, "findAllPrincipalNames"))
}

// AddPrincipal implements Client.
func (c *SOAPClient) AddPrincipal(principal Principal, password string) Result[Principal] {
	return invoke[Principal](c, "addPrincipal", principal, PasswordCredential{Credential: password})
}

// UpdatePrincipalAttribute implements Client.
func (c *SOAPClient) UpdatePrincipalAttribute(name string, attribute Attribute) Result[Empty] {
	return invoke[Empty](c, "updatePrincipalAttribute", name, attribute)
}

// UpdatePrincipalCredential implements Client.
func (c *SOAPClient) UpdatePrincipalCredential(name, password string) Result[Empty] {
	return invoke[Empty](c, "updatePrincipalCredential", name, PasswordCredential{Credential: password})
}

// RemovePrincipal implements Client.
func (c *SOAPClient) RemovePrincipal(name string) Result[Empty] {
	return invoke[Empty](c, "removePrincipal", name)
}

// FindAllGroupNames implements Client.
func (c *SOAPClient) FindAllGroupNames() Result[[]string] {
	return names(invoke[Names](c, "findAllGroupNames"))
}

// FindGroupByName implements Client.
func (c *SOAPClient) FindGroupByName(name string) Result[Group] {
	return invoke[Group](c, "findGroupByName", name)
}

// FindGroupMemberships returns the groups principal is a direct member of.
func (c *SOAPClient) FindGroupMemberships(principal string) Result[[]string] {
	return names(invoke[Names](c, "findGroupMemberships", principal))
}

// AddGroup implements Client.
func (c *SOAPClient) AddGroup(group Group) Result[Group] {
	return invoke[Group](c, "addGroup", group)
}

// RemoveGroup implements Client.
func (c *SOAPClient) RemoveGroup(name string) Result[Empty] {
	return invoke[Empty](c, "removeGroup", name)
}

// AddPrincipalToGroup implements Client.
func (c *SOAPClient) AddPrincipalToGroup(principal, group string) Result[Empty] {
	return invoke[Empty](c, "addPrincipalToGroup", principal, group)
}

// RemovePrincipalFromGroup implements Client.
func (c *SOAPClient) RemovePrincipalFromGroup(principal, group string) Result[Empty] {
	return invoke[Empty](c, "removePrincipalFromGroup", principal, group)
}
