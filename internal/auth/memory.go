package auth

import (
	"sync"

	"github.com/alexedwards/argon2id"

	"github.com/foundry-core/foundry/internal/db/models"
)

// MemoryService keeps users, passwords and groups in process memory.
// Passwords are stored as argon2id hashes.
type MemoryService struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	passwords map[string]string
	groups    map[string]*models.Group
}

var (
	_ Service   = (*MemoryService)(nil)
	_ Subgroups = (*MemoryService)(nil)
)

// NewMemoryService returns an empty directory.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		users:     make(map[string]*models.User),
		passwords: make(map[string]string),
		groups:    make(map[string]*models.Group),
	}
}

// Authenticate fails closed on an empty username or password.
func (s *MemoryService) Authenticate(username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	s.mu.RLock()
	stored, ok := s.passwords[username]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, stored)

	return err == nil && match
}

// ChangePassword implements Service.
func (s *MemoryService) ChangePassword(username, password string) bool {
	if password == "" {
		return false
	}

	hashed, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return false
	}

	s.passwords[username] = hashed

	return true
}

// UserExists implements Service.
func (s *MemoryService) UserExists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[username]

	return ok
}

// Users implements Service.
func (s *MemoryService) Users() map[string]*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.User, len(s.users))
	for name, u := range s.users {
		out[name] = u.Clone()
	}

	return out
}

// User implements Service.
func (s *MemoryService) User(username string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, false
	}

	return u.Clone(), true
}

// UserGroups implements Service.
func (s *MemoryService) UserGroups(username string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)

	for name, g := range s.groups {
		if g.HasUser(username) {
			out[name] = name
		}
	}

	return out
}

// AddUser fails on a blank username, an empty password or an existing user.
func (s *MemoryService) AddUser(user *models.User, password string) bool {
	if user == nil || user.Username() == "" || password == "" {
		return false
	}

	hashed, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username()]; ok {
		return false
	}

	s.users[user.Username()] = user.Clone()
	s.passwords[user.Username()] = hashed

	return true
}

// UpdateUser fails for an unknown user.
func (s *MemoryService) UpdateUser(user *models.User) bool {
	if user == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username()]; !ok {
		return false
	}

	s.users[user.Username()] = user.Clone()

	return true
}

// DeleteUser removes the user and its group memberships.
func (s *MemoryService) DeleteUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return false
	}

	delete(s.users, username)
	delete(s.passwords, username)

	for _, g := range s.groups {
		g.RemoveUser(username)
	}

	return true
}

// GroupExists implements Service.
func (s *MemoryService) GroupExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.groups[name]

	return ok
}

// Groups implements Service.
func (s *MemoryService) Groups() map[string]*models.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Group, len(s.groups))
	for name, g := range s.groups {
		out[name] = g.Clone()
	}

	return out
}

// GroupNames implements Service.
func (s *MemoryService) GroupNames() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.groups))
	for name := range s.groups {
		out[name] = name
	}

	return out
}

// Group implements Service.
func (s *MemoryService) Group(name string) (*models.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[name]
	if !ok {
		return nil, false
	}

	return g.Clone(), true
}

// AddGroup fails on a blank name or an existing group.
func (s *MemoryService) AddGroup(group *models.Group) bool {
	if group == nil || group.Name() == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[group.Name()]; ok {
		return false
	}

	s.groups[group.Name()] = group.Clone()

	return true
}

// DeleteGroup removes the group and its use as a subgroup.
func (s *MemoryService) DeleteGroup(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[name]; !ok {
		return false
	}

	delete(s.groups, name)

	for _, g := range s.groups {
		g.RemoveSubgroup(name)
	}

	return true
}

// AddUserToGroup fails for unknown users or groups and existing members.
func (s *MemoryService) AddUserToGroup(username, group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[group]
	if !ok {
		return false
	}

	if _, ok = s.users[username]; !ok {
		return false
	}

	return g.AddUser(username)
}

// RemoveUserFromGroup fails when username is not a direct member.
func (s *MemoryService) RemoveUserFromGroup(username, group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[group]
	if !ok {
		return false
	}

	return g.RemoveUser(username)
}

// AddSubgroupToGroup fails for unknown groups, self nesting and existing subgroups.
// Cycles through other groups are allowed.
func (s *MemoryService) AddSubgroupToGroup(sub, parent string) bool {
	if sub == parent {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[parent]
	if !ok {
		return false
	}

	if _, ok = s.groups[sub]; !ok {
		return false
	}

	return g.AddSubgroup(sub)
}

// RemoveSubgroupFromGroup fails when sub is not a direct subgroup.
func (s *MemoryService) RemoveSubgroupFromGroup(sub, parent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[parent]
	if !ok {
		return false
	}

	return g.RemoveSubgroup(sub)
}
