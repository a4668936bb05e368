package auth_test

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/provider"
)

const (
	managerDN       = "cn=manager,dc=example,dc=com"
	managerPassword = "manager-secret"
)

var errInvalidCredentials = ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))

type fakeEntry struct {
	dn    string
	attrs map[string][]string
}

// fakeDirectory is an in-memory LDAPConn understanding the equality,
// presence and AND filters the service sends.
type fakeDirectory struct {
	entries map[string]*fakeEntry
	bound   string
	binds   int
	closed  bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{entries: make(map[string]*fakeEntry)}
}

func (d *fakeDirectory) Bind(dn, password string) error {
	d.binds++

	if dn == managerDN && password == managerPassword {
		d.bound = dn
		return nil
	}

	e, ok := d.entries[strings.ToLower(dn)]
	if !ok || password == "" || !slicesEqualFold(lookup(e.attrs, "userPassword"), password) {
		d.bound = ""
		return errInvalidCredentials
	}

	d.bound = e.dn

	return nil
}

func (d *fakeDirectory) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	base := strings.ToLower(req.BaseDN)
	res := &ldap.SearchResult{}

	for key, e := range d.entries {
		if !strings.HasSuffix(key, base) || !matchFilter(req.Filter, e.attrs) {
			continue
		}

		res.Entries = append(res.Entries, ldap.NewEntry(e.dn, e.attrs))
	}

	return res, nil
}

func (d *fakeDirectory) Add(req *ldap.AddRequest) error {
	key := strings.ToLower(req.DN)
	if _, ok := d.entries[key]; ok {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("exists"))
	}

	e := &fakeEntry{dn: req.DN, attrs: make(map[string][]string)}
	for _, a := range req.Attributes {
		e.attrs[a.Type] = append([]string(nil), a.Vals...)
	}

	d.entries[key] = e

	return nil
}

func (d *fakeDirectory) Modify(req *ldap.ModifyRequest) error {
	e, ok := d.entries[strings.ToLower(req.DN)]
	if !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
	}

	for _, c := range req.Changes {
		name := c.Modification.Type
		vals := c.Modification.Vals

		switch c.Operation {
		case ldap.AddAttribute:
			e.attrs[name] = append(e.attrs[name], vals...)
		case ldap.DeleteAttribute:
			if len(vals) == 0 {
				delete(e.attrs, name)
				continue
			}

			kept := e.attrs[name][:0]
			for _, v := range e.attrs[name] {
				if !slicesEqualFold(vals, v) {
					kept = append(kept, v)
				}
			}

			e.attrs[name] = kept
		case ldap.ReplaceAttribute:
			if len(vals) == 0 {
				delete(e.attrs, name)
				continue
			}

			e.attrs[name] = append([]string(nil), vals...)
		}
	}

	return nil
}

func (d *fakeDirectory) Del(req *ldap.DelRequest) error {
	key := strings.ToLower(req.DN)
	if _, ok := d.entries[key]; !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
	}

	delete(d.entries, key)

	return nil
}

func (d *fakeDirectory) Close() error {
	d.closed = true
	return nil
}

func matchFilter(filter string, attrs map[string][]string) bool {
	filter = strings.TrimSuffix(strings.TrimPrefix(filter, "("), ")")

	if rest, ok := strings.CutPrefix(filter, "&"); ok {
		for _, sub := range splitFilters(rest) {
			if !matchFilter(sub, attrs) {
				return false
			}
		}

		return true
	}

	attr, val, _ := strings.Cut(filter, "=")
	vals := lookup(attrs, attr)

	if val == "*" {
		return len(vals) > 0
	}

	return slicesEqualFold(vals, unescapeFilter(val))
}

func splitFilters(s string) []string {
	var (
		out   []string
		depth int
		start int
	)

	for i, c := range s {
		switch c {
		case '(':
			if depth == 0 {
				start = i
			}

			depth++
		case ')':
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}

	return out
}

func unescapeFilter(v string) string {
	var b strings.Builder

	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+2 < len(v) {
			if decoded, err := hex.DecodeString(v[i+1 : i+3]); err == nil {
				b.Write(decoded)
				i += 2

				continue
			}
		}

		b.WriteByte(v[i])
	}

	return b.String()
}

func lookup(attrs map[string][]string, name string) []string {
	for k, v := range attrs {
		if strings.EqualFold(k, name) {
			return v
		}
	}

	return nil
}

func slicesEqualFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}

	return false
}

func ldapConfig() auth.LDAPConfig {
	return auth.LDAPConfig{
		URL:             "ldap://localhost:389",
		BaseDN:          "dc=example,dc=com",
		ManagerDN:       managerDN,
		ManagerPassword: managerPassword,
		UserDN:          "ou=users,dc=example,dc=com",
		GroupDN:         "ou=groups,dc=example,dc=com",
	}
}

func newLDAP(t *testing.T) (*auth.LDAPService, *fakeDirectory) {
	t.Helper()

	dir := newFakeDirectory()

	svc, err := auth.NewLDAPServiceWithConn(ldapConfig(), dir)
	require.NoError(t, err)

	return svc, dir
}

func TestLDAPDefaults(t *testing.T) {
	cfg := auth.LDAPConfig{UsernameAttr: "uid"}.WithDefaults()

	assert.Equal(t, "uid", cfg.UsernameAttr)
	assert.Equal(t, "inetOrgPerson", cfg.UserObjectClass)
	assert.Equal(t, "groupOfNames", cfg.GroupObjectClass)
	assert.Equal(t, "member", cfg.GroupMemberAttr)
	assert.Equal(t, "userPassword", cfg.PasswordAttr)
	assert.Equal(t, 10, cfg.Timeout)
	assert.Equal(t, "cn", auth.LDAPConfig{}.WithDefaults().UsernameAttr)
}

func TestLDAPConstruction(t *testing.T) {
	_, err := auth.NewLDAPService(auth.LDAPConfig{})
	require.ErrorIs(t, err, provider.ErrValidation)

	cfg := ldapConfig()
	cfg.ManagerPassword = "wrong"

	dir := newFakeDirectory()
	_, err = auth.NewLDAPServiceWithConn(cfg, dir)
	require.ErrorIs(t, err, provider.ErrServiceConnection)
	assert.True(t, dir.closed)

	svc, dir := newLDAP(t)
	assert.Equal(t, managerDN, dir.bound)
	require.NoError(t, svc.Close())
}

func TestLDAPAuthenticateRebindsManager(t *testing.T) {
	svc, dir := newLDAP(t)

	alice := models.NewUser()
	alice.SetUsername("alice")
	alice.SetEmail("alice@example.com")
	require.True(t, svc.AddUser(alice, "secret"))

	assert.True(t, svc.Authenticate("alice", "secret"))
	assert.Equal(t, managerDN, dir.bound)

	assert.False(t, svc.Authenticate("alice", "wrong"))
	assert.Equal(t, managerDN, dir.bound)

	binds := dir.binds
	assert.False(t, svc.Authenticate("alice", ""))
	assert.False(t, svc.Authenticate("", "secret"))
	assert.False(t, svc.Authenticate("nobody", "secret"))
	assert.Equal(t, binds, dir.binds, "no bind without a candidate user")

	require.True(t, svc.ChangePassword("alice", "changed"))
	assert.True(t, svc.Authenticate("alice", "changed"))
	assert.False(t, svc.ChangePassword("nobody", "x"))
}

func TestLDAPUsers(t *testing.T) {
	svc, dir := newLDAP(t)

	alice := models.NewUser()
	alice.SetUsername("alice")
	alice.SetDisplayName("Alice A.")
	alice.SetFirstName("Alice")
	require.True(t, svc.AddUser(alice, "pw"))
	assert.False(t, svc.AddUser(alice, "pw"), "duplicate")
	assert.False(t, svc.AddUser(newUser("bob"), ""), "empty password")

	entry := dir.entries["cn=alice,ou=users,dc=example,dc=com"]
	require.NotNil(t, entry)
	assert.Equal(t, []string{"alice"}, entry.attrs["sn"], "surname falls back to the username")

	got, ok := svc.User("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice A.", got.DisplayName())
	assert.Equal(t, "Alice", got.FirstName())
	assert.True(t, svc.UserExists("alice"))
	assert.False(t, svc.UserExists("bob"))

	got.SetEmail("alice@example.com")
	got.SetDisplayName("")
	require.True(t, svc.UpdateUser(got))

	got, _ = svc.User("alice")
	assert.Equal(t, "alice@example.com", got.Email())
	assert.Empty(t, got.DisplayName())
	assert.False(t, svc.UpdateUser(newUser("bob")))

	require.True(t, svc.AddUser(newUser("bob"), "pw"))
	assert.Len(t, svc.Users(), 2)

	assert.True(t, svc.DeleteUser("bob"))
	assert.False(t, svc.DeleteUser("bob"))
	assert.Len(t, svc.Users(), 1)
}

func TestLDAPGroupsAndPlaceholder(t *testing.T) {
	svc, dir := newLDAP(t)
	require.True(t, svc.AddUser(newUser("alice"), "pw"))

	admins := models.NewGroup()
	admins.SetName("admins")
	admins.SetDescription("Administrators")
	require.True(t, svc.AddGroup(admins))
	assert.False(t, svc.AddGroup(admins))

	entry := dir.entries["cn=admins,ou=groups,dc=example,dc=com"]
	require.NotNil(t, entry)
	assert.Equal(t, []string{managerDN}, entry.attrs["member"])

	g, ok := svc.Group("admins")
	require.True(t, ok)
	assert.Empty(t, g.Users(), "the placeholder member is not a user")
	assert.Equal(t, "Administrators", g.Description())

	require.True(t, svc.AddUserToGroup("alice", "admins"))
	assert.False(t, svc.AddUserToGroup("alice", "admins"))
	assert.False(t, svc.AddUserToGroup("nobody", "admins"))
	assert.Equal(t, []string{"cn=alice,ou=users,dc=example,dc=com"}, entry.attrs["member"])
	assert.Equal(t, map[string]string{"admins": "admins"}, svc.UserGroups("alice"))

	require.True(t, svc.RemoveUserFromGroup("alice", "admins"))
	assert.False(t, svc.RemoveUserFromGroup("alice", "admins"))
	assert.Equal(t, []string{managerDN}, entry.attrs["member"], "the last member is replaced by the placeholder")
	assert.Empty(t, svc.UserGroups("alice"))

	assert.True(t, svc.GroupExists("admins"))
	assert.Equal(t, map[string]string{"admins": "admins"}, svc.GroupNames())
	assert.Len(t, svc.Groups(), 1)

	assert.True(t, svc.DeleteGroup("admins"))
	assert.False(t, svc.DeleteGroup("admins"))
	assert.Empty(t, svc.Groups())
}

func TestLDAPSubgroups(t *testing.T) {
	svc, _ := newLDAP(t)
	require.True(t, svc.AddUser(newUser("alice"), "pw"))
	require.True(t, svc.AddUser(newUser("bob"), "pw"))
	require.True(t, svc.AddGroup(newGroup("admins", "alice")))
	require.True(t, svc.AddGroup(newGroup("staff", "bob")))

	require.True(t, svc.AddSubgroupToGroup("staff", "admins"))
	assert.False(t, svc.AddSubgroupToGroup("staff", "admins"))
	assert.False(t, svc.AddSubgroupToGroup("admins", "admins"))
	assert.False(t, svc.AddSubgroupToGroup("missing", "admins"))

	g, ok := svc.Group("admins")
	require.True(t, ok)
	assert.Equal(t, []string{"alice"}, g.Users())
	assert.Equal(t, []string{"staff"}, g.Subgroups())

	a := auth.New(svc, auth.Options{AdminGroup: "admins"})
	assert.True(t, a.SupportsSubgroups())
	assert.Equal(t, []string{"alice", "bob"}, a.GroupMembership("admins"))

	require.True(t, a.Login("bob", "pw"))
	assert.True(t, a.IsAdmin())

	require.True(t, svc.DeleteUser("bob"))

	g, _ = svc.Group("staff")
	assert.Empty(t, g.Users(), "deleted users leave their groups")

	require.True(t, svc.DeleteGroup("staff"))

	g, _ = svc.Group("admins")
	assert.Empty(t, g.Subgroups(), "deleted groups leave their parents")
	assert.False(t, svc.RemoveSubgroupFromGroup("staff", "admins"))
}

func TestLDAPMembersOutsideConfiguredBase(t *testing.T) {
	svc, dir := newLDAP(t)

	carolDN := "cn=carol,ou=staff,ou=users,dc=example,dc=com"
	dir.entries[carolDN] = &fakeEntry{dn: carolDN, attrs: map[string][]string{
		"objectClass":  {"inetOrgPerson"},
		"cn":           {"carol"},
		"sn":           {"carol"},
		"userPassword": {"pw"},
	}}

	teamDN := "cn=ops,ou=teams,ou=groups,dc=example,dc=com"
	dir.entries[teamDN] = &fakeEntry{dn: teamDN, attrs: map[string][]string{
		"objectClass": {"groupOfNames"},
		"cn":          {"ops"},
		"member":      {managerDN},
	}}

	require.True(t, svc.AddGroup(newGroup("admins")))

	require.True(t, svc.AddUserToGroup("carol", "admins"))
	assert.Equal(t, map[string]string{"admins": "admins"}, svc.UserGroups("carol"))

	require.True(t, svc.RemoveUserFromGroup("carol", "admins"))
	assert.Empty(t, svc.UserGroups("carol"))
	assert.False(t, svc.RemoveUserFromGroup("carol", "admins"))
	assert.False(t, svc.RemoveUserFromGroup("nobody", "admins"))

	require.True(t, svc.AddSubgroupToGroup("ops", "admins"))

	g, _ := svc.Group("admins")
	assert.Equal(t, []string{"ops"}, g.Subgroups())

	require.True(t, svc.RemoveSubgroupFromGroup("ops", "admins"))

	g, _ = svc.Group("admins")
	assert.Empty(t, g.Subgroups())

	require.True(t, svc.AddGroup(newGroup("auditors", "carol")))

	entry := dir.entries["cn=auditors,ou=groups,dc=example,dc=com"]
	require.NotNil(t, entry)
	assert.Equal(t, []string{carolDN}, entry.attrs["member"], "members are stored under their directory DN")
}
