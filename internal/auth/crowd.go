package auth

import (
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/crowd"
	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/provider"
)

const (
	crowdService = "crowd"

	// DefaultCrowdCookie is the cookie Crowd applications share the SSO token in.
	DefaultCrowdCookie = "crowd.token_key"
)

// CrowdConfig holds the Crowd security server settings.
type CrowdConfig struct {
	AppName       string `validate:"required"`
	AppCredential string `validate:"required"`
	ServiceURL    string `validate:"required,url"` // e.g. https://crowd/services/SecurityServer
	CookieName    string // SSO token cookie, default crowd.token_key
	Timeout       time.Duration
}

// NewCrowdClient authenticates the application and returns a client shared
// by every request.
func NewCrowdClient(cfg CrowdConfig) (*crowd.SOAPClient, error) {
	if err := provider.Validate(crowdService, cfg); err != nil {
		return nil, err
	}

	client, err := crowd.Dial(crowd.Options{
		URL:           cfg.ServiceURL,
		AppName:       cfg.AppName,
		AppCredential: cfg.AppCredential,
		Timeout:       cfg.Timeout,
	})
	if err != nil {
		return nil, provider.Connection(crowdService, err)
	}

	return client, nil
}

// CrowdService is an authentication service backed by Crowd with single
// sign-on through the Crowd token cookie. It is bound to the cookies of
// one request.
type CrowdService struct {
	client     crowd.Client
	cookies    Cookies
	cookieName string
}

var (
	_ Service = (*CrowdService)(nil)
	_ SSO     = (*CrowdService)(nil)
)

// NewCrowdService returns a service using client for the request owning cookies.
func NewCrowdService(client crowd.Client, cookies Cookies, cookieName string) *CrowdService {
	if cookies == nil {
		cookies = NoCookies{}
	}

	if cookieName == "" {
		cookieName = DefaultCrowdCookie
	}

	return &CrowdService{client: client, cookies: cookies, cookieName: cookieName}
}

func succeeded[T any](op string, r crowd.Result[T]) bool {
	if !r.OK() {
		log.Debug().Err(r.Fault).Str("operation", op).Msg("crowd")
	}

	return r.OK()
}

// Authenticate creates a Crowd token for the user and stores it in the SSO cookie.
func (s *CrowdService) Authenticate(username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	res := s.client.AuthenticatePrincipal(username, password, nil)
	if !succeeded("authenticatePrincipal", res) {
		return false
	}

	s.cookies.SetCookie(s.cookieName, res.Value)

	return true
}

// CheckSSO validates the token of the SSO cookie.
func (s *CrowdService) CheckSSO() (string, bool) {
	token := s.cookies.Cookie(s.cookieName)
	if token == "" {
		return "", false
	}

	valid := s.client.IsValidPrincipalToken(token, nil)
	if !succeeded("isValidPrincipalToken", valid) || !valid.Value {
		return "", false
	}

	principal := s.client.FindPrincipalByToken(token)
	if !succeeded("findPrincipalByToken", principal) || principal.Value.Name == "" {
		return "", false
	}

	return principal.Value.Name, true
}

// LogoutSSO invalidates the token and clears the SSO cookie.
func (s *CrowdService) LogoutSSO() {
	if token := s.cookies.Cookie(s.cookieName); token != "" {
		succeeded("invalidatePrincipalToken", s.client.InvalidatePrincipalToken(token))
	}

	s.cookies.ClearCookie(s.cookieName)
}

// ChangePassword implements Service.
func (s *CrowdService) ChangePassword(username, password string) bool {
	if password == "" {
		return false
	}

	return succeeded("updatePrincipalCredential", s.client.UpdatePrincipalCredential(username, password))
}

// UserExists implements Service.
func (s *CrowdService) UserExists(username string) bool {
	_, found := s.User(username)
	return found
}

// Users implements Service.
func (s *CrowdService) Users() map[string]*models.User {
	out := make(map[string]*models.User)

	names := s.client.FindAllPrincipalNames()
	if !succeeded("findAllPrincipalNames", names) {
		return out
	}

	for _, name := range names.Value {
		if u, found := s.User(name); found {
			out[name] = u
		}
	}

	return out
}

// User implements Service.
func (s *CrowdService) User(username string) (*models.User, bool) {
	if username == "" {
		return nil, false
	}

	res := s.client.FindPrincipalByName(username)
	if !succeeded("findPrincipalByName", res) {
		return nil, false
	}

	return toUser(res.Value), true
}

// UserGroups implements Service.
func (s *CrowdService) UserGroups(username string) map[string]string {
	out := make(map[string]string)

	res := s.client.FindGroupMemberships(username)
	if !succeeded("findGroupMemberships", res) {
		return out
	}

	for _, name := range res.Value {
		out[name] = name
	}

	return out
}

// AddUser implements Service.
func (s *CrowdService) AddUser(user *models.User, password string) bool {
	if user == nil || user.Username() == "" || password == "" || s.UserExists(user.Username()) {
		return false
	}

	principal := crowd.Principal{
		Name:       user.Username(),
		Active:     true,
		Attributes: userAttributes(user),
	}

	return succeeded("addPrincipal", s.client.AddPrincipal(principal, password))
}

// UpdateUser replaces the non-empty profile attributes of an existing user.
func (s *CrowdService) UpdateUser(user *models.User) bool {
	if user == nil || !s.UserExists(user.Username()) {
		return false
	}

	for _, attr := range userAttributes(user) {
		if !succeeded("updatePrincipalAttribute", s.client.UpdatePrincipalAttribute(user.Username(), attr)) {
			return false
		}
	}

	return true
}

// DeleteUser implements Service.
func (s *CrowdService) DeleteUser(username string) bool {
	return username != "" && succeeded("removePrincipal", s.client.RemovePrincipal(username))
}

// GroupExists implements Service.
func (s *CrowdService) GroupExists(name string) bool {
	_, found := s.Group(name)
	return found
}

// Groups implements Service.
func (s *CrowdService) Groups() map[string]*models.Group {
	out := make(map[string]*models.Group)

	for name := range s.GroupNames() {
		if g, found := s.Group(name); found {
			out[name] = g
		}
	}

	return out
}

// GroupNames implements Service.
func (s *CrowdService) GroupNames() map[string]string {
	out := make(map[string]string)

	res := s.client.FindAllGroupNames()
	if !succeeded("findAllGroupNames", res) {
		return out
	}

	for _, name := range res.Value {
		out[name] = name
	}

	return out
}

// Group implements Service.
func (s *CrowdService) Group(name string) (*models.Group, bool) {
	if name == "" {
		return nil, false
	}

	res := s.client.FindGroupByName(name)
	if !succeeded("findGroupByName", res) {
		return nil, false
	}

	g := models.NewGroup()
	g.SetName(res.Value.Name)
	g.SetDescription(res.Value.Description)
	g.SetUsers(res.Value.Members)

	return g, true
}

// AddGroup creates the group and adds its users. If a user cannot be added
// the group is removed again and AddGroup reports false.
func (s *CrowdService) AddGroup(group *models.Group) bool {
	if group == nil || group.Name() == "" || s.GroupExists(group.Name()) {
		return false
	}

	res := s.client.AddGroup(crowd.Group{
		Name:        group.Name(),
		Description: group.Description(),
		Active:      true,
	})
	if !succeeded("addGroup", res) {
		return false
	}

	for _, u := range group.Users() {
		if !succeeded("addPrincipalToGroup", s.client.AddPrincipalToGroup(u, group.Name())) {
			succeeded("removeGroup", s.client.RemoveGroup(group.Name()))
			return false
		}
	}

	return true
}

// DeleteGroup implements Service.
func (s *CrowdService) DeleteGroup(name string) bool {
	return name != "" && succeeded("removeGroup", s.client.RemoveGroup(name))
}

// AddUserToGroup implements Service.
func (s *CrowdService) AddUserToGroup(username, group string) bool {
	res := s.client.FindGroupByName(group)
	if !succeeded("findGroupByName", res) || res.Value.HasMember(username) {
		return false
	}

	return succeeded("addPrincipalToGroup", s.client.AddPrincipalToGroup(username, group))
}

// RemoveUserFromGroup implements Service.
func (s *CrowdService) RemoveUserFromGroup(username, group string) bool {
	res := s.client.FindGroupByName(group)
	if !succeeded("findGroupByName", res) || !res.Value.HasMember(username) {
		return false
	}

	return succeeded("removePrincipalFromGroup", s.client.RemovePrincipalFromGroup(username, group))
}

func toUser(p crowd.Principal) *models.User {
	u := models.NewUser()
	u.SetUsername(p.Name)
	u.SetDisplayName(p.Attribute(crowd.AttrDisplayName))
	u.SetEmail(p.Attribute(crowd.AttrEmail))
	u.SetFirstName(p.Attribute(crowd.AttrFirstName))
	u.SetSurname(p.Attribute(crowd.AttrSurname))

	return u
}

func userAttributes(u *models.User) []crowd.Attribute {
	attrs := []crowd.Attribute{
		{Name: crowd.AttrDisplayName, Values: []string{u.DisplayName()}},
		{Name: crowd.AttrEmail, Values: []string{u.Email()}},
		{Name: crowd.AttrFirstName, Values: []string{u.FirstName()}},
		{Name: crowd.AttrSurname, Values: []string{u.Surname()}},
	}

	return slices.DeleteFunc(attrs, func(a crowd.Attribute) bool { return a.Values[0] == "" })
}
