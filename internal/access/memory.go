package access

import (
	"sync"

	"github.com/foundry-core/foundry/internal/db/models"
)

// MemoryService keeps roles in process memory.
type MemoryService struct {
	mu    sync.RWMutex
	roles map[string]*models.Role
}

var _ Service = (*MemoryService)(nil)

// NewMemoryService returns an empty role store.
func NewMemoryService() *MemoryService {
	return &MemoryService{roles: make(map[string]*models.Role)}
}

// AddRole implements Service.
func (s *MemoryService) AddRole(role *models.Role) bool {
	if !valid(role) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.Key()]; ok {
		return false
	}

	s.roles[role.Key()] = role.Clone()

	return true
}

// RemoveRole implements Service.
func (s *MemoryService) RemoveRole(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[key]; !ok {
		return false
	}

	delete(s.roles, key)

	return true
}

// Role implements Service.
func (s *MemoryService) Role(key string) (*models.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[key]
	if !ok {
		return nil, false
	}

	return r.Clone(), true
}

// Roles implements Service.
func (s *MemoryService) Roles() map[string]*models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Role, len(s.roles))
	for key, r := range s.roles {
		out[key] = r.Clone()
	}

	return out
}
