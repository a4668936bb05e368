// Package access provides role definitions and role based authorization.
//
// A Service stores roles: a key, a description and the groups whose
// members hold the role. The Access façade adds the built-in roles and
// answers HasRole by intersecting a role's groups with the groups an
// auth.Auth resolves for a user.
package access

import (
	"github.com/foundry-core/foundry/internal/db/models"
)

// Service is the contract every role provider implements.
type Service interface {
	// AddRole fails on an empty key, an empty group list or an existing key.
	AddRole(role *models.Role) bool
	RemoveRole(key string) bool
	Role(key string) (*models.Role, bool)
	Roles() map[string]*models.Role
}

func valid(role *models.Role) bool {
	return role != nil && role.Key() != "" && len(role.Groups()) > 0
}
