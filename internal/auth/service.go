package auth

import (
	"github.com/foundry-core/foundry/internal/db/models"
)

// Service is the contract every authentication provider implements.
//
// Providers report failures as false or empty results. Only their
// constructors return errors.
type Service interface {
	Authenticate(username, password string) bool
	ChangePassword(username, password string) bool
	UserExists(username string) bool
	Users() map[string]*models.User
	User(username string) (*models.User, bool)
	// UserGroups returns the groups username is a direct member of, name to name.
	UserGroups(username string) map[string]string
	AddUser(user *models.User, password string) bool
	UpdateUser(user *models.User) bool
	DeleteUser(username string) bool

	GroupExists(name string) bool
	Groups() map[string]*models.Group
	GroupNames() map[string]string
	Group(name string) (*models.Group, bool)
	AddGroup(group *models.Group) bool
	DeleteGroup(name string) bool
	AddUserToGroup(username, group string) bool
	RemoveUserFromGroup(username, group string) bool
}

// SSO is implemented by providers that accept an externally issued session.
type SSO interface {
	// CheckSSO validates the inbound session token and returns its user.
	CheckSSO() (string, bool)
	LogoutSSO()
}

// Subgroups is implemented by providers whose groups can contain groups.
type Subgroups interface {
	AddSubgroupToGroup(sub, parent string) bool
	RemoveSubgroupFromGroup(sub, parent string) bool
}

// AsSSO returns the SSO capability of svc, if any.
func AsSSO(svc Service) (SSO, bool) {
	sso, ok := svc.(SSO)
	return sso, ok
}

// AsSubgroups returns the Subgroups capability of svc, if any.
func AsSubgroups(svc Service) (Subgroups, bool) {
	sub, ok := svc.(Subgroups)
	return sub, ok
}

// Cookies gives SSO providers access to the cookies of the current request.
type Cookies interface {
	Cookie(name string) string
	SetCookie(name, value string)
	ClearCookie(name string)
}

// NoCookies is a Cookies without any cookie. Setting is a no-op.
type NoCookies struct{}

// Cookie implements Cookies.
func (NoCookies) Cookie(string) string { return "" }

// SetCookie implements Cookies.
func (NoCookies) SetCookie(string, string) {}

// ClearCookie implements Cookies.
func (NoCookies) ClearCookie(string) {}

// MapCookies is a Cookies backed by a map, for tools and tests.
type MapCookies map[string]string

// Cookie implements Cookies.
func (m MapCookies) Cookie(name string) string { return m[name] }

// SetCookie implements Cookies.
func (m MapCookies) SetCookie(name, value string) { m[name] = value }

// ClearCookie implements Cookies.
func (m MapCookies) ClearCookie(name string) { delete(m, name) }
