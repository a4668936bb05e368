package access

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/models"
)

const defaultTimeout = 10 * time.Second

// DatabaseService stores roles in the roles collection. All roles are
// loaded on first use and never queried again; writes go through to the
// database and the loaded set.
type DatabaseService struct {
	mu      sync.Mutex
	db      *db.Database
	timeout time.Duration
	roles   map[string]*models.Role // nil until loaded
}

var _ Service = (*DatabaseService)(nil)

// NewDatabaseService returns a role store over database.
func NewDatabaseService(database *db.Database) *DatabaseService {
	return &DatabaseService{db: database, timeout: defaultTimeout}
}

// Collection returns the collection roles are stored in.
func Collection() string {
	return (*models.Role)(nil).TableName()
}

func (s *DatabaseService) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// load fills the role set once. A failed load is retried on next use.
func (s *DatabaseService) load() bool {
	if s.roles != nil {
		return true
	}

	ctx, cancel := s.withTimeout()
	defer cancel()

	rs, err := s.db.LoadObjects(ctx, models.NewRoleModel, Collection(), db.Query{
		KeyField: models.RoleFieldKey,
		Sort:     []db.SortRule{db.SortAsc(models.RoleFieldKey)},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")
		return false
	}

	roles := make(map[string]*models.Role, rs.Len())
	for _, m := range rs.Items() {
		if r, ok := m.(*models.Role); ok && r.Key() != "" {
			roles[r.Key()] = r
		}
	}

	s.roles = roles

	return true
}

// AddRole implements Service.
func (s *DatabaseService) AddRole(role *models.Role) bool {
	if !valid(role) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.load() {
		return false
	}

	if _, ok := s.roles[role.Key()]; ok {
		return false
	}

	ctx, cancel := s.withTimeout()
	defer cancel()

	if err := s.db.WriteObject(ctx, role, Collection()); err != nil {
		log.Error().Err(err).Str("role", role.Key()).Msg("failed to write role")
		return false
	}

	s.roles[role.Key()] = role.Clone()

	return true
}

// RemoveRole implements Service.
func (s *DatabaseService) RemoveRole(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.load() {
		return false
	}

	if _, ok := s.roles[key]; !ok {
		return false
	}

	ctx, cancel := s.withTimeout()
	defer cancel()

	if err := s.db.DeleteObject(ctx, Collection(), db.Conditions{db.Eq(models.RoleFieldKey, key)}); err != nil {
		log.Error().Err(err).Str("role", key).Msg("failed to delete role")
		return false
	}

	delete(s.roles, key)

	return true
}

// Role implements Service.
func (s *DatabaseService) Role(key string) (*models.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.load() {
		return nil, false
	}

	r, ok := s.roles[key]
	if !ok {
		return nil, false
	}

	return r.Clone(), true
}

// Roles implements Service.
func (s *DatabaseService) Roles() map[string]*models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*models.Role)
	if !s.load() {
		return out
	}

	for key, r := range s.roles {
		out[key] = r.Clone()
	}

	return out
}
