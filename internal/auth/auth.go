package auth

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/logger"
)

// Options configure an Auth façade.
type Options struct {
	// AdminGroup is the group whose members are administrators.
	AdminGroup string
	// Hasher hardens passwords in HashPassword. Defaults to argon2id.
	Hasher *Hasher
}

// Auth wraps one Service with lookup caches, group membership resolution
// and the notion of a current user.
//
// An Auth is meant to live for one request or session and is not safe for
// concurrent use. Its state can be carried between requests with Snapshot
// and Restore.
type Auth struct {
	svc        Service
	sso        SSO
	subgroups  Subgroups
	adminGroup string
	hasher     *Hasher
	cache      *cache
	current    string
}

// New returns an Auth façade for svc. Optional capabilities of svc are
// detected once here.
func New(svc Service, opts Options) *Auth {
	a := &Auth{
		svc:        svc,
		adminGroup: opts.AdminGroup,
		hasher:     opts.Hasher,
		cache:      newCache(),
	}

	if sso, ok := AsSSO(svc); ok {
		a.sso = sso
	}

	if sub, ok := AsSubgroups(svc); ok {
		a.subgroups = sub
	}

	if a.hasher == nil {
		a.hasher, _ = NewHasher(HashArgon2id, "", 0)
	}

	return a
}

// Service returns the wrapped provider.
func (a *Auth) Service() Service { return a.svc }

// SupportsSSO reports whether the provider accepts external sessions.
func (a *Auth) SupportsSSO() bool { return a.sso != nil }

// SupportsSubgroups reports whether the provider nests groups.
func (a *Auth) SupportsSubgroups() bool { return a.subgroups != nil }

// AdminGroup returns the configured administrators group.
func (a *Auth) AdminGroup() string { return a.adminGroup }

// Login authenticates username and makes it the current user.
func (a *Auth) Login(username, password string) bool {
	ok := a.svc.Authenticate(username, password)
	if ok {
		a.current = username
	}

	logger.AuditResult(ok, "auth.login", "login "+username)

	return ok
}

// Logout forgets the current user and ends an SSO session.
func (a *Auth) Logout() {
	if a.current != "" {
		logger.Audit(zerolog.InfoLevel, "auth.logout", "logout "+a.current)
	}

	a.current = ""

	if a.sso != nil {
		a.sso.LogoutSSO()
	}
}

// CurrentUser returns the authenticated username, or "" when nobody is.
// Without a local login, an SSO session is checked.
func (a *Auth) CurrentUser() string {
	if a.current != "" {
		return a.current
	}

	if a.sso != nil {
		if username, ok := a.sso.CheckSSO(); ok {
			a.current = username
		}
	}

	return a.current
}

// IsAuthenticated reports whether there is a current user.
func (a *Auth) IsAuthenticated() bool {
	return a.CurrentUser() != ""
}

// IsAdmin reports whether the current user is in the admin group.
func (a *Auth) IsAdmin() bool {
	username := a.CurrentUser()
	if username == "" || a.adminGroup == "" {
		return false
	}

	_, ok := a.UserGroups(username)[a.adminGroup]

	return ok
}

// Authenticate checks credentials without changing the current user.
func (a *Auth) Authenticate(username, password string) bool {
	return a.svc.Authenticate(username, password)
}

// ChangePassword implements Service.
func (a *Auth) ChangePassword(username, password string) bool {
	ok := a.svc.ChangePassword(username, password)
	logger.AuditResult(ok, "auth.changePassword", "change password of "+username)

	return ok
}

// UserExists implements Service.
func (a *Auth) UserExists(username string) bool {
	if _, ok := a.cache.user[username]; ok {
		countLookup("user", true)
		return true
	}

	return a.svc.UserExists(username)
}

// Users implements Service.
func (a *Auth) Users() map[string]*models.User {
	countLookup("users", a.cache.users != nil)

	if a.cache.users == nil {
		a.cache.users = a.svc.Users()
	}

	out := make(map[string]*models.User, len(a.cache.users))
	for name, u := range a.cache.users {
		out[name] = u.Clone()
	}

	return out
}

// User implements Service.
func (a *Auth) User(username string) (*models.User, bool) {
	if u, ok := a.cache.user[username]; ok {
		countLookup("user", true)
		return u.Clone(), true
	}

	if u, ok := a.cache.users[username]; ok {
		countLookup("user", true)
		return u.Clone(), true
	}

	countLookup("user", false)

	u, ok := a.svc.User(username)
	if !ok {
		return nil, false
	}

	a.cache.user[username] = u.Clone()

	return u, true
}

// UserGroups returns every group username belongs to, directly or through
// subgroups when the provider supports them.
func (a *Auth) UserGroups(username string) map[string]string {
	if groups, ok := a.cache.userGroups[username]; ok {
		countLookup("user_groups", true)
		return maps.Clone(groups)
	}

	countLookup("user_groups", false)

	groups := a.svc.UserGroups(username)
	if groups == nil {
		groups = make(map[string]string)
	}

	if a.subgroups != nil {
		for name, g := range a.Groups(true) {
			if g.HasUser(username) {
				groups[name] = name
			}
		}
	}

	a.cache.userGroups[username] = groups

	return maps.Clone(groups)
}

// AddUser implements Service.
func (a *Auth) AddUser(user *models.User, password string) bool {
	ok := user != nil && a.svc.AddUser(user, password)
	if ok {
		a.cache.putUser(user)
	}

	logger.AuditResult(ok, "auth.addUser", "add user "+username(user))

	return ok
}

// UpdateUser implements Service.
func (a *Auth) UpdateUser(user *models.User) bool {
	ok := user != nil && a.svc.UpdateUser(user)
	if ok {
		a.cache.putUser(user)
	}

	logger.AuditResult(ok, "auth.updateUser", "update user "+username(user))

	return ok
}

// DeleteUser implements Service. Deleting the current user logs it out.
func (a *Auth) DeleteUser(username string) bool {
	ok := a.svc.DeleteUser(username)
	if ok {
		a.cache.dropUser(username)

		if a.current == username {
			a.current = ""
		}
	}

	logger.AuditResult(ok, "auth.deleteUser", "delete user "+username)

	return ok
}

// GroupExists implements Service.
func (a *Auth) GroupExists(name string) bool {
	if _, ok := a.cache.group[name]; ok {
		countLookup("group", true)
		return true
	}

	return a.svc.GroupExists(name)
}

// Groups returns every group. With flatten and subgroup support, the users
// of each group are replaced by its full transitive membership. Flattened
// and raw results are cached apart.
func (a *Auth) Groups(flatten bool) map[string]*models.Group {
	flatten = flatten && a.subgroups != nil

	groups, ok := a.cache.groups[flatten]
	countLookup("groups", ok)

	if !ok {
		groups = a.loadGroups(flatten)
		a.cache.groups[flatten] = groups
	}

	out := make(map[string]*models.Group, len(groups))
	for name, g := range groups {
		out[name] = g.Clone()
	}

	return out
}

func (a *Auth) loadGroups(flatten bool) map[string]*models.Group {
	raw, ok := a.cache.groups[false]
	if !ok {
		raw = a.svc.Groups()
		a.cache.groups[false] = raw
	}

	if !flatten {
		return raw
	}

	lookup := func(name string) (*models.Group, bool) {
		g, ok := raw[name]
		return g, ok
	}

	flat := make(map[string]*models.Group, len(raw))

	for name, g := range raw {
		cp := g.Clone()
		cp.SetUsers(membership(name, lookup, true))
		flat[name] = cp
	}

	return flat
}

// GroupNames implements Service.
func (a *Auth) GroupNames() map[string]string {
	countLookup("group_names", a.cache.groupNames != nil)

	if a.cache.groupNames == nil {
		a.cache.groupNames = a.svc.GroupNames()
	}

	return maps.Clone(a.cache.groupNames)
}

// Group implements Service.
func (a *Auth) Group(name string) (*models.Group, bool) {
	if g, ok := a.cache.group[name]; ok {
		countLookup("group", true)
		return g.Clone(), true
	}

	countLookup("group", false)

	g, ok := a.svc.Group(name)
	if !ok {
		return nil, false
	}

	a.cache.putGroup(g)

	return g, true
}

// GroupMembership returns the users of group and, with subgroup support,
// of every group reachable through subgroups. Each group is expanded once,
// so cyclic subgroup graphs terminate.
func (a *Auth) GroupMembership(group string) []string {
	return membership(group, a.Group, a.subgroups != nil)
}

func membership(group string, lookup func(string) (*models.Group, bool), recurse bool) []string {
	members := make(map[string]struct{})
	visited := make(map[string]struct{})

	var walk func(name string)

	walk = func(name string) {
		if _, seen := visited[name]; seen {
			return
		}

		visited[name] = struct{}{}

		g, ok := lookup(name)
		if !ok {
			return
		}

		for _, u := range g.Users() {
			members[u] = struct{}{}
		}

		if !recurse {
			return
		}

		for _, sub := range g.Subgroups() {
			walk(sub)
		}
	}

	walk(group)

	return slices.Sorted(maps.Keys(members))
}

// AddGroup implements Service.
func (a *Auth) AddGroup(group *models.Group) bool {
	ok := group != nil && a.svc.AddGroup(group)
	if ok {
		a.cache.putGroup(group)
		clear(a.cache.groups)
		a.cache.groupNames = nil

		if len(group.Subgroups()) > 0 {
			clear(a.cache.userGroups)
		}

		for _, u := range group.Users() {
			delete(a.cache.userGroups, u)
		}
	}

	logger.AuditResult(ok, "auth.addGroup", "add group "+groupName(group))

	return ok
}

// DeleteGroup implements Service.
func (a *Auth) DeleteGroup(name string) bool {
	ok := a.svc.DeleteGroup(name)
	if ok {
		a.cache.topologyChanged(name)
	}

	logger.AuditResult(ok, "auth.deleteGroup", "delete group "+name)

	return ok
}

// AddUserToGroup implements Service.
func (a *Auth) AddUserToGroup(username, group string) bool {
	ok := a.svc.AddUserToGroup(username, group)
	if ok {
		a.cache.membershipChanged(group, username)
	}

	logger.AuditResult(ok, "auth.addUserToGroup", fmt.Sprintf("add %s to %s", username, group))

	return ok
}

// RemoveUserFromGroup implements Service.
func (a *Auth) RemoveUserFromGroup(username, group string) bool {
	ok := a.svc.RemoveUserFromGroup(username, group)
	if ok {
		a.cache.membershipChanged(group, username)
	}

	logger.AuditResult(ok, "auth.removeUserFromGroup", fmt.Sprintf("remove %s from %s", username, group))

	return ok
}

// AddSubgroupToGroup nests sub in parent. It fails without subgroup support.
// Every user's cached groups are dropped, since any of them may be affected.
func (a *Auth) AddSubgroupToGroup(sub, parent string) bool {
	ok := a.subgroups != nil && a.subgroups.AddSubgroupToGroup(sub, parent)
	if ok {
		a.cache.membershipChanged(parent, "")
	}

	logger.AuditResult(ok, "auth.addSubgroupToGroup", fmt.Sprintf("add subgroup %s to %s", sub, parent))

	return ok
}

// RemoveSubgroupFromGroup removes sub from parent. It fails without subgroup support.
func (a *Auth) RemoveSubgroupFromGroup(sub, parent string) bool {
	ok := a.subgroups != nil && a.subgroups.RemoveSubgroupFromGroup(sub, parent)
	if ok {
		a.cache.membershipChanged(parent, "")
	}

	logger.AuditResult(ok, "auth.removeSubgroupFromGroup", fmt.Sprintf("remove subgroup %s from %s", sub, parent))

	return ok
}

// HashPassword returns the stored form of password.
func (a *Auth) HashPassword(password string) (string, error) {
	return a.hasher.Hash(password)
}

// VerifyPassword reports whether password matches a HashPassword result.
func (a *Auth) VerifyPassword(password, stored string) bool {
	return a.hasher.Verify(password, stored)
}

func username(u *models.User) string {
	if u == nil {
		return ""
	}

	return u.Username()
}

func groupName(g *models.Group) string {
	if g == nil {
		return ""
	}

	return g.Name()
}
