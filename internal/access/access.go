package access

import (
	"strings"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/logger"
)

// Built-in role keys.
const (
	RoleAdmin         = "admin"
	RoleAuthenticated = "authenticated"
	RoleAnonymous     = "anonymous"
	RoleAll           = "all"
)

// Access wraps one Service with the built-in roles and authorization
// checks against an auth.Auth. It is not safe for concurrent use.
type Access struct {
	svc   Service
	auth  *auth.Auth
	roles map[string]*models.Role
}

// New returns an Access façade. The admin role is granted to the admin
// group of a.
func New(svc Service, a *auth.Auth) *Access {
	acc := &Access{svc: svc, auth: a, roles: make(map[string]*models.Role)}

	var adminGroups []string
	if a.AdminGroup() != "" {
		adminGroups = []string{a.AdminGroup()}
	}

	acc.seed(RoleAdmin, "Administrators", adminGroups)
	acc.seed(RoleAuthenticated, "Every authenticated user", nil)
	acc.seed(RoleAnonymous, "Every unauthenticated visitor", nil)
	acc.seed(RoleAll, "Everybody", nil)

	return acc
}

func (a *Access) seed(key, description string, groups []string) {
	r := models.NewRole()
	r.SetKey(key)
	r.SetDescription(description)
	r.SetGroups(groups)

	a.roles[key] = r
}

// Builtin reports whether key names a built-in role.
func Builtin(key string) bool {
	switch strings.TrimSpace(key) {
	case RoleAdmin, RoleAuthenticated, RoleAnonymous, RoleAll:
		return true
	default:
		return false
	}
}

// Service returns the wrapped provider.
func (a *Access) Service() Service { return a.svc }

// AddRole stores role under its trimmed key. Keys already known, built-in
// roles included, are rejected.
func (a *Access) AddRole(role *models.Role) bool {
	if role == nil {
		return false
	}

	key := strings.TrimSpace(role.Key())

	ok := key != ""
	if ok {
		if _, exists := a.Role(key); exists {
			ok = false
		}
	}

	if ok {
		r := role.Clone()
		r.SetKey(key)

		if ok = a.svc.AddRole(r); ok {
			a.roles[key] = r
		}
	}

	logger.AuditResult(ok, "access.addRole", "add role "+key)

	return ok
}

// RemoveRole removes the role stored under the trimmed key.
func (a *Access) RemoveRole(key string) bool {
	key = strings.TrimSpace(key)

	ok := key != "" && a.svc.RemoveRole(key)
	if ok {
		delete(a.roles, key)
	}

	logger.AuditResult(ok, "access.removeRole", "remove role "+key)

	return ok
}

// Role returns the role stored under the trimmed key.
func (a *Access) Role(key string) (*models.Role, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}

	if r, ok := a.roles[key]; ok {
		return r.Clone(), true
	}

	r, ok := a.svc.Role(key)
	if !ok {
		return nil, false
	}

	a.roles[key] = r.Clone()

	return r, true
}

// Roles returns the provider roles and the built-in roles.
func (a *Access) Roles() map[string]*models.Role {
	for key, r := range a.svc.Roles() {
		if _, ok := a.roles[key]; !ok {
			a.roles[key] = r
		}
	}

	out := make(map[string]*models.Role, len(a.roles))
	for key, r := range a.roles {
		out[key] = r.Clone()
	}

	return out
}

// HasRole reports whether username, or the current user when username is
// blank, holds the role. "all" always grants, "authenticated" and
// "anonymous" depend only on whether somebody is logged in. Any other role
// grants when one of its groups is among the user's groups.
func (a *Access) HasRole(key, username string) bool {
	key = strings.TrimSpace(key)

	switch key {
	case RoleAll:
		return true
	case RoleAuthenticated:
		return a.auth.IsAuthenticated()
	case RoleAnonymous:
		return !a.auth.IsAuthenticated()
	}

	role, ok := a.Role(key)
	if !ok {
		return false
	}

	if username == "" {
		username = a.auth.CurrentUser()
	}

	if username == "" {
		return false
	}

	groups := a.auth.UserGroups(username)
	for _, g := range role.Groups() {
		if _, member := groups[g]; member {
			return true
		}
	}

	return false
}
