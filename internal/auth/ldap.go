package auth

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/provider"
)

const ldapService = "ldap"

// LDAPConfig holds the LDAP directory settings. Empty attribute and object
// class options fall back to inetOrgPerson / groupOfNames defaults.
type LDAPConfig struct {
	// URL of the directory, e.g. ldap://localhost:389 or ldaps://host:636.
	URL string `validate:"required,url"`
	// StartTLS upgrades a plain ldap:// connection.
	StartTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// Timeout is the connection and search timeout in seconds.
	Timeout int

	BaseDN string
	// ManagerDN is bound for every directory operation. It is also used as
	// the placeholder member of otherwise empty groups.
	ManagerDN       string `validate:"required"`
	ManagerPassword string

	// UserDN is the subtree holding users, e.g. ou=users,dc=example,dc=com.
	UserDN          string `validate:"required"`
	UserObjectClass string
	// UserFilter is an optional extra filter for users, e.g. (mail=*).
	UserFilter      string
	UsernameAttr    string
	DisplayNameAttr string
	EmailAttr       string
	FirstNameAttr   string
	SurnameAttr     string
	PasswordAttr    string

	// GroupDN is the subtree holding groups, e.g. ou=groups,dc=example,dc=com.
	GroupDN              string `validate:"required"`
	GroupObjectClass     string
	GroupNameAttr        string
	GroupDescriptionAttr string
	GroupMemberAttr      string
}

// WithDefaults returns c with every empty optional setting filled in.
func (c LDAPConfig) WithDefaults() LDAPConfig {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}

	def(&c.UserObjectClass, "inetOrgPerson")
	def(&c.UsernameAttr, "cn")
	def(&c.DisplayNameAttr, "displayName")
	def(&c.EmailAttr, "mail")
	def(&c.FirstNameAttr, "givenName")
	def(&c.SurnameAttr, "sn")
	def(&c.PasswordAttr, "userPassword")
	def(&c.GroupObjectClass, "groupOfNames")
	def(&c.GroupNameAttr, "cn")
	def(&c.GroupDescriptionAttr, "description")
	def(&c.GroupMemberAttr, "member")

	if c.Timeout == 0 {
		c.Timeout = 10
	}

	return c
}

// LDAPConn is the part of *ldap.Conn the LDAP service uses.
type LDAPConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
	Close() error
}

// LDAPService is an authentication service backed by an LDAP directory.
// One connection is held and bound as the manager between operations.
type LDAPService struct {
	mu   sync.Mutex
	cfg  LDAPConfig
	conn LDAPConn
}

var (
	_ Service   = (*LDAPService)(nil)
	_ Subgroups = (*LDAPService)(nil)
)

// NewLDAPService connects to the directory and binds as the manager.
func NewLDAPService(cfg LDAPConfig) (*LDAPService, error) {
	if err := provider.Validate(ldapService, cfg); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults()

	conn, err := Connect(cfg)
	if err != nil {
		return nil, provider.Connection(ldapService, err)
	}

	return NewLDAPServiceWithConn(cfg, conn)
}

// NewLDAPServiceWithConn binds conn as the manager and returns a service using it.
func NewLDAPServiceWithConn(cfg LDAPConfig, conn LDAPConn) (*LDAPService, error) {
	s := &LDAPService{cfg: cfg.WithDefaults(), conn: conn}

	if err := s.bindManager(); err != nil {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}

		return nil, provider.Connection(ldapService, err)
	}

	return s, nil
}

// Connect dials the directory and upgrades the connection when StartTLS is set.
func Connect(cfg LDAPConfig) (*ldap.Conn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse LDAP url: %w", err)
	}

	var tlsConfig *tls.Config
	if u.Scheme == "ldaps" || cfg.StartTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         u.Hostname(),
		}
	}

	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if u.Scheme != "ldaps" && cfg.StartTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	if cfg.Timeout > 0 {
		conn.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}

	return conn, nil
}

// Close closes the directory connection.
func (s *LDAPService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}

func (s *LDAPService) bindManager() error {
	if err := s.conn.Bind(s.cfg.ManagerDN, s.cfg.ManagerPassword); err != nil {
		return fmt.Errorf("failed to bind with manager account: %w", err)
	}

	return nil
}

func (s *LDAPService) rebindManager() {
	if err := s.bindManager(); err != nil {
		log.Error().Err(err).Msg("ldap")
	}
}

// Authenticate binds as the user. The manager is bound again afterwards,
// whether or not the user bind succeeded.
func (s *LDAPService) Authenticate(username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchUser(username)
	if entry == nil {
		return false
	}

	defer s.rebindManager()

	if err := s.conn.Bind(entry.DN, password); err != nil {
		log.Debug().Err(err).Str("user", username).Msg("ldap authentication failed")
		return false
	}

	return true
}

// ChangePassword replaces the password attribute of the user.
func (s *LDAPService) ChangePassword(username, password string) bool {
	if password == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchUser(username)
	if entry == nil {
		return false
	}

	req := ldap.NewModifyRequest(entry.DN, nil)
	req.Replace(s.cfg.PasswordAttr, []string{password})

	return s.modify(req)
}

// UserExists implements Service.
func (s *LDAPService) UserExists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.searchUser(username) != nil
}

// Users implements Service.
func (s *LDAPService) Users() map[string]*models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.search(s.cfg.UserDN, s.userFilter(""), s.userAttributes())

	out := make(map[string]*models.User, len(entries))
	for _, e := range entries {
		u := s.toUser(e)
		if u.Username() != "" {
			out[u.Username()] = u
		}
	}

	return out
}

// User implements Service.
func (s *LDAPService) User(username string) (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchUser(username)
	if entry == nil {
		return nil, false
	}

	return s.toUser(entry), true
}

// UserGroups returns the groups listing the user as a direct member.
func (s *LDAPService) UserGroups(username string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)

	entry := s.searchUser(username)
	if entry == nil {
		return out
	}

	filter := s.groupFilter(s.cfg.GroupMemberAttr, entry.DN)
	for _, e := range s.search(s.cfg.GroupDN, filter, []string{s.cfg.GroupNameAttr}) {
		if name := e.GetAttributeValue(s.cfg.GroupNameAttr); name != "" {
			out[name] = name
		}
	}

	return out
}

// AddUser creates a user entry with password. The surname and common name
// required by inetOrgPerson fall back to the username.
func (s *LDAPService) AddUser(user *models.User, password string) bool {
	if user == nil || user.Username() == "" || password == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.searchUser(user.Username()) != nil {
		return false
	}

	req := ldap.NewAddRequest(s.userDN(user.Username()), nil)
	req.Attribute("objectClass", []string{s.cfg.UserObjectClass})
	req.Attribute(s.cfg.UsernameAttr, []string{user.Username()})

	if s.cfg.UsernameAttr != "cn" {
		req.Attribute("cn", []string{fallback(user.DisplayName(), user.Username())})
	}

	req.Attribute(s.cfg.SurnameAttr, []string{fallback(user.Surname(), user.Username())})

	for attr, v := range map[string]string{
		s.cfg.DisplayNameAttr: user.DisplayName(),
		s.cfg.EmailAttr:       user.Email(),
		s.cfg.FirstNameAttr:   user.FirstName(),
	} {
		if v != "" {
			req.Attribute(attr, []string{v})
		}
	}

	req.Attribute(s.cfg.PasswordAttr, []string{password})

	if err := s.conn.Add(req); err != nil {
		log.Warn().Err(err).Str("dn", req.DN).Msg("ldap add failed")
		return false
	}

	return true
}

// UpdateUser replaces the profile attributes of an existing user.
func (s *LDAPService) UpdateUser(user *models.User) bool {
	if user == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchUser(user.Username())
	if entry == nil {
		return false
	}

	req := ldap.NewModifyRequest(entry.DN, nil)
	req.Replace(s.cfg.DisplayNameAttr, values(user.DisplayName()))
	req.Replace(s.cfg.EmailAttr, values(user.Email()))
	req.Replace(s.cfg.FirstNameAttr, values(user.FirstName()))

	if user.Surname() != "" {
		req.Replace(s.cfg.SurnameAttr, []string{user.Surname()})
	}

	return s.modify(req)
}

// DeleteUser removes the user entry and its group memberships.
func (s *LDAPService) DeleteUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchUser(username)
	if entry == nil {
		return false
	}

	if err := s.conn.Del(ldap.NewDelRequest(entry.DN, nil)); err != nil {
		log.Warn().Err(err).Str("dn", entry.DN).Msg("ldap delete failed")
		return false
	}

	s.dropMember(entry.DN)

	return true
}

// GroupExists implements Service.
func (s *LDAPService) GroupExists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.searchGroup(name) != nil
}

// Groups implements Service.
func (s *LDAPService) Groups() map[string]*models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.search(s.cfg.GroupDN, s.groupFilter("", ""), s.groupAttributes())

	out := make(map[string]*models.Group, len(entries))
	for _, e := range entries {
		g := s.toGroup(e)
		if g.Name() != "" {
			out[g.Name()] = g
		}
	}

	return out
}

// GroupNames implements Service.
func (s *LDAPService) GroupNames() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	for _, e := range s.search(s.cfg.GroupDN, s.groupFilter("", ""), []string{s.cfg.GroupNameAttr}) {
		if name := e.GetAttributeValue(s.cfg.GroupNameAttr); name != "" {
			out[name] = name
		}
	}

	return out
}

// Group implements Service.
func (s *LDAPService) Group(name string) (*models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchGroup(name)
	if entry == nil {
		return nil, false
	}

	return s.toGroup(entry), true
}

// AddGroup creates a group entry. A group without members gets the manager
// as placeholder member.
func (s *LDAPService) AddGroup(group *models.Group) bool {
	if group == nil || group.Name() == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.searchGroup(group.Name()) != nil {
		return false
	}

	members := make([]string, 0, len(group.Users())+len(group.Subgroups()))
	for _, u := range group.Users() {
		if e := s.searchUser(u); e != nil {
			members = append(members, e.DN)
			continue
		}

		members = append(members, s.userDN(u))
	}

	for _, g := range group.Subgroups() {
		if e := s.searchGroup(g); e != nil {
			members = append(members, e.DN)
			continue
		}

		members = append(members, s.groupDN(g))
	}

	if len(members) == 0 {
		members = []string{s.cfg.ManagerDN}
	}

	req := ldap.NewAddRequest(s.groupDN(group.Name()), nil)
	req.Attribute("objectClass", []string{s.cfg.GroupObjectClass})
	req.Attribute(s.cfg.GroupNameAttr, []string{group.Name()})

	if group.Description() != "" {
		req.Attribute(s.cfg.GroupDescriptionAttr, []string{group.Description()})
	}

	req.Attribute(s.cfg.GroupMemberAttr, members)

	if err := s.conn.Add(req); err != nil {
		log.Warn().Err(err).Str("dn", req.DN).Msg("ldap add failed")
		return false
	}

	return true
}

// DeleteGroup removes the group entry and its use as a subgroup.
func (s *LDAPService) DeleteGroup(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchGroup(name)
	if entry == nil {
		return false
	}

	if err := s.conn.Del(ldap.NewDelRequest(entry.DN, nil)); err != nil {
		log.Warn().Err(err).Str("dn", entry.DN).Msg("ldap delete failed")
		return false
	}

	s.dropMember(entry.DN)

	return true
}

// AddUserToGroup implements Service.
func (s *LDAPService) AddUserToGroup(username, group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.searchUser(username)
	if user == nil {
		return false
	}

	return s.addMember(group, user.DN)
}

// RemoveUserFromGroup implements Service.
func (s *LDAPService) RemoveUserFromGroup(username, group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.searchUser(username)
	if user == nil {
		return false
	}

	return s.removeMember(group, user.DN)
}

// AddSubgroupToGroup adds sub as a member of parent.
func (s *LDAPService) AddSubgroupToGroup(sub, parent string) bool {
	if sub == parent {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchGroup(sub)
	if entry == nil {
		return false
	}

	return s.addMember(parent, entry.DN)
}

// RemoveSubgroupFromGroup implements Subgroups.
func (s *LDAPService) RemoveSubgroupFromGroup(sub, parent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.searchGroup(sub)
	if entry == nil {
		return false
	}

	return s.removeMember(parent, entry.DN)
}

func (s *LDAPService) addMember(group, dn string) bool {
	entry := s.searchGroup(group)
	if entry == nil {
		return false
	}

	members := entry.GetAttributeValues(s.cfg.GroupMemberAttr)
	if containsDN(members, dn) {
		return false
	}

	req := ldap.NewModifyRequest(entry.DN, nil)
	req.Add(s.cfg.GroupMemberAttr, []string{dn})

	if containsDN(members, s.cfg.ManagerDN) {
		req.Delete(s.cfg.GroupMemberAttr, []string{s.cfg.ManagerDN})
	}

	return s.modify(req)
}

func (s *LDAPService) removeMember(group, dn string) bool {
	entry := s.searchGroup(group)
	if entry == nil {
		return false
	}

	members := entry.GetAttributeValues(s.cfg.GroupMemberAttr)
	if !containsDN(members, dn) {
		return false
	}

	req := ldap.NewModifyRequest(entry.DN, nil)
	if len(members) == 1 {
		req.Add(s.cfg.GroupMemberAttr, []string{s.cfg.ManagerDN})
	}

	req.Delete(s.cfg.GroupMemberAttr, []string{dn})

	return s.modify(req)
}

// dropMember removes dn from every group listing it.
func (s *LDAPService) dropMember(dn string) {
	filter := s.groupFilter(s.cfg.GroupMemberAttr, dn)
	for _, e := range s.search(s.cfg.GroupDN, filter, []string{s.cfg.GroupNameAttr, s.cfg.GroupMemberAttr}) {
		s.removeMember(e.GetAttributeValue(s.cfg.GroupNameAttr), dn)
	}
}

func (s *LDAPService) modify(req *ldap.ModifyRequest) bool {
	if err := s.conn.Modify(req); err != nil {
		log.Warn().Err(err).Str("dn", req.DN).Msg("ldap modify failed")
		return false
	}

	return true
}

func (s *LDAPService) search(base, filter string, attributes []string) []*ldap.Entry {
	req := ldap.NewSearchRequest(
		base,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		s.cfg.Timeout,
		false,
		filter,
		attributes,
		nil,
	)

	res, err := s.conn.Search(req)
	if err != nil {
		log.Warn().Err(err).Str("filter", filter).Msg("ldap search failed")
		return nil
	}

	return res.Entries
}

func (s *LDAPService) searchUser(username string) *ldap.Entry {
	if username == "" {
		return nil
	}

	entries := s.search(s.cfg.UserDN, s.userFilter(username), s.userAttributes())
	if len(entries) != 1 {
		if len(entries) > 1 {
			log.Warn().Err(ErrMultipleUsersFound).Str("user", username).Msg("ldap")
		}

		return nil
	}

	return entries[0]
}

func (s *LDAPService) searchGroup(name string) *ldap.Entry {
	if name == "" {
		return nil
	}

	entries := s.search(s.cfg.GroupDN, s.groupFilter(s.cfg.GroupNameAttr, name), s.groupAttributes())
	if len(entries) != 1 {
		return nil
	}

	return entries[0]
}

func (s *LDAPService) userFilter(username string) string {
	filter := "(objectClass=" + ldap.EscapeFilter(s.cfg.UserObjectClass) + ")"
	if username != "" {
		filter += "(" + s.cfg.UsernameAttr + "=" + ldap.EscapeFilter(username) + ")"
	}

	return "(&" + filter + s.cfg.UserFilter + ")"
}

func (s *LDAPService) groupFilter(attr, value string) string {
	filter := "(objectClass=" + ldap.EscapeFilter(s.cfg.GroupObjectClass) + ")"
	if attr != "" {
		filter += "(" + attr + "=" + ldap.EscapeFilter(value) + ")"
	}

	return "(&" + filter + ")"
}

func (s *LDAPService) userAttributes() []string {
	return []string{
		s.cfg.UsernameAttr,
		s.cfg.DisplayNameAttr,
		s.cfg.EmailAttr,
		s.cfg.FirstNameAttr,
		s.cfg.SurnameAttr,
	}
}

func (s *LDAPService) groupAttributes() []string {
	return []string{s.cfg.GroupNameAttr, s.cfg.GroupDescriptionAttr, s.cfg.GroupMemberAttr}
}

func (s *LDAPService) userDN(username string) string {
	return s.cfg.UsernameAttr + "=" + ldap.EscapeDN(username) + "," + s.cfg.UserDN
}

func (s *LDAPService) groupDN(name string) string {
	return s.cfg.GroupNameAttr + "=" + ldap.EscapeDN(name) + "," + s.cfg.GroupDN
}

func (s *LDAPService) toUser(e *ldap.Entry) *models.User {
	u := models.NewUser()
	u.SetUsername(e.GetAttributeValue(s.cfg.UsernameAttr))
	u.SetDisplayName(e.GetAttributeValue(s.cfg.DisplayNameAttr))
	u.SetEmail(e.GetAttributeValue(s.cfg.EmailAttr))
	u.SetFirstName(e.GetAttributeValue(s.cfg.FirstNameAttr))
	u.SetSurname(e.GetAttributeValue(s.cfg.SurnameAttr))

	return u
}

// toGroup sorts member DNs into users and subgroups by the subtree they
// name. The manager placeholder is skipped.
func (s *LDAPService) toGroup(e *ldap.Entry) *models.Group {
	g := models.NewGroup()
	g.SetName(e.GetAttributeValue(s.cfg.GroupNameAttr))
	g.SetDescription(e.GetAttributeValue(s.cfg.GroupDescriptionAttr))

	userDN := strings.ToLower(s.cfg.UserDN)
	groupDN := strings.ToLower(s.cfg.GroupDN)

	var users, subgroups []string

	for _, member := range e.GetAttributeValues(s.cfg.GroupMemberAttr) {
		if strings.EqualFold(member, s.cfg.ManagerDN) {
			continue
		}

		name := firstRDNValue(member)
		if name == "" {
			continue
		}

		lower := strings.ToLower(member)

		switch {
		case strings.Contains(lower, userDN):
			users = append(users, name)
		case strings.Contains(lower, groupDN):
			subgroups = append(subgroups, name)
		}
	}

	g.SetUsers(users)
	g.SetSubgroups(subgroups)

	return g
}

func firstRDNValue(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return ""
	}

	return parsed.RDNs[0].Attributes[0].Value
}

func containsDN(list []string, dn string) bool {
	for _, v := range list {
		if strings.EqualFold(v, dn) {
			return true
		}
	}

	return false
}

func values(v string) []string {
	if v == "" {
		return []string{}
	}

	return []string{v}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
