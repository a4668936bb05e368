package models

import (
	"slices"

	"github.com/foundry-core/foundry/internal/model"
)

// Group field names.
const (
	GroupFieldName        = "name"
	GroupFieldDescription = "description"
	GroupFieldUsers       = "users"
	GroupFieldSubgroups   = "subgroups"
)

// GroupSchema is the field layout of a Group. The name is the key.
var GroupSchema = model.NewSchema("group", GroupFieldName, //nolint:gochecknoglobals
	model.Field{Name: GroupFieldName, Type: model.TypeString},
	model.Field{Name: GroupFieldDescription, Type: model.TypeString},
	model.Field{Name: GroupFieldUsers, Type: model.TypeStringList},
	model.Field{Name: GroupFieldSubgroups, Type: model.TypeStringList},
)

// Group represents a named set of users.
// Users and subgroups are sets: membership matters, order does not.
// Subgroup graphs may contain cycles.
type Group struct {
	model.Base
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{Base: model.NewBase(GroupSchema)}
}

// NewGroupModel is a model.Factory for groups.
func NewGroupModel() model.Model {
	return NewGroup()
}

// TableName is the collection groups are stored in.
func (*Group) TableName() string {
	return "groups"
}

// Name returns the group name.
func (g *Group) Name() string { return g.Text(GroupFieldName) }

// SetName sets the group name.
func (g *Group) SetName(v string) { g.MustSet(GroupFieldName, v) }

// Description returns the group description.
func (g *Group) Description() string { return g.Text(GroupFieldDescription) }

// SetDescription sets the group description.
func (g *Group) SetDescription(v string) { g.MustSet(GroupFieldDescription, v) }

// Users returns the direct members.
func (g *Group) Users() []string { return g.Strings(GroupFieldUsers) }

// SetUsers replaces the direct members. Duplicates are dropped.
func (g *Group) SetUsers(v []string) { g.MustSet(GroupFieldUsers, dedupe(v)) }

// HasUser reports whether username is a direct member.
func (g *Group) HasUser(username string) bool { return slices.Contains(g.Users(), username) }

// AddUser adds a direct member. It reports false if already present.
func (g *Group) AddUser(username string) bool {
	return g.addTo(GroupFieldUsers, username)
}

// RemoveUser removes a direct member. It reports false if absent.
func (g *Group) RemoveUser(username string) bool {
	return g.removeFrom(GroupFieldUsers, username)
}

// Subgroups returns the names of the direct subgroups.
func (g *Group) Subgroups() []string { return g.Strings(GroupFieldSubgroups) }

// SetSubgroups replaces the direct subgroups. Duplicates are dropped.
func (g *Group) SetSubgroups(v []string) { g.MustSet(GroupFieldSubgroups, dedupe(v)) }

// HasSubgroup reports whether name is a direct subgroup.
func (g *Group) HasSubgroup(name string) bool { return slices.Contains(g.Subgroups(), name) }

// AddSubgroup adds a direct subgroup. It reports false if already present.
func (g *Group) AddSubgroup(name string) bool {
	return g.addTo(GroupFieldSubgroups, name)
}

// RemoveSubgroup removes a direct subgroup. It reports false if absent.
func (g *Group) RemoveSubgroup(name string) bool {
	return g.removeFrom(GroupFieldSubgroups, name)
}

// Clone returns an independent copy of g.
func (g *Group) Clone() *Group {
	c := NewGroup()
	model.Load(c, g.AsMap())

	return c
}

func (g *Group) addTo(field, value string) bool {
	list := g.Strings(field)
	if slices.Contains(list, value) {
		return false
	}

	g.MustSet(field, append(list, value))

	return true
}

func (g *Group) removeFrom(field, value string) bool {
	list := g.Strings(field)

	idx := slices.Index(list, value)
	if idx < 0 {
		return false
	}

	g.MustSet(field, slices.Delete(list, idx, idx+1))

	return true
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
