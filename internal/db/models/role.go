package models

import (
	"github.com/foundry-core/foundry/internal/model"
)

// Role field names.
const (
	RoleFieldKey         = "key"
	RoleFieldDescription = "description"
	RoleFieldGroups      = "groups"
)

// RoleSchema is the field layout of a Role. The key is the key field.
var RoleSchema = model.NewSchema("role", RoleFieldKey, //nolint:gochecknoglobals
	model.Field{Name: RoleFieldKey, Type: model.TypeString},
	model.Field{Name: RoleFieldDescription, Type: model.TypeString},
	model.Field{Name: RoleFieldGroups, Type: model.TypeStringList},
)

// Role represents a named privilege granted to the members of its groups.
// Examples include the built-in "admin" role and application defined roles.
type Role struct {
	model.Base
}

// NewRole returns an empty role.
func NewRole() *Role {
	return &Role{Base: model.NewBase(RoleSchema)}
}

// NewRoleModel is a model.Factory for roles.
func NewRoleModel() model.Model {
	return NewRole()
}

// TableName is the collection roles are stored in.
func (*Role) TableName() string {
	return "roles"
}

// Key returns the role key.
func (r *Role) Key() string { return r.Text(RoleFieldKey) }

// SetKey sets the role key.
func (r *Role) SetKey(v string) { r.MustSet(RoleFieldKey, v) }

// Description returns the role description.
func (r *Role) Description() string { return r.Text(RoleFieldDescription) }

// SetDescription sets the role description.
func (r *Role) SetDescription(v string) { r.MustSet(RoleFieldDescription, v) }

// Groups returns the groups whose members hold the role, in configured order.
func (r *Role) Groups() []string { return r.Strings(RoleFieldGroups) }

// SetGroups sets the groups whose members hold the role.
func (r *Role) SetGroups(v []string) { r.MustSet(RoleFieldGroups, v) }

// Clone returns an independent copy of r.
func (r *Role) Clone() *Role {
	c := NewRole()
	model.Load(c, r.AsMap())

	return c
}
