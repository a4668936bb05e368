package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/foundry-core/foundry/internal/db/models"
	"github.com/foundry-core/foundry/internal/model"
)

const snapshotVersion = 1

type record = map[string]any

// snapshot is the persisted form of an Auth. A null map stands for a cache
// that was never loaded.
type snapshot struct {
	Version    int                          `json:"version"`
	TakenAt    time.Time                    `json:"taken_at"`
	Current    string                       `json:"current"`
	User       map[string]record            `json:"user"`
	Users      map[string]record            `json:"users"`
	UserGroups map[string]map[string]string `json:"user_groups"`
	Group      map[string]record            `json:"group"`
	Groups     map[string]map[string]record `json:"groups"`
	GroupNames map[string]string            `json:"group_names"`
}

func groupsKey(flatten bool) string {
	if flatten {
		return "flat"
	}

	return "raw"
}

// Snapshot exports the current user and every cache as JSON.
func (a *Auth) Snapshot() ([]byte, error) {
	s := snapshot{
		Version:    snapshotVersion,
		TakenAt:    time.Now().UTC(),
		Current:    a.current,
		User:       userRecords(a.cache.user),
		Users:      userRecords(a.cache.users),
		UserGroups: a.cache.userGroups,
		Group:      groupRecords(a.cache.group),
		Groups:     make(map[string]map[string]record, len(a.cache.groups)),
		GroupNames: a.cache.groupNames,
	}

	for flatten, groups := range a.cache.groups {
		s.Groups[groupsKey(flatten)] = groupRecords(groups)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return data, nil
}

// Restore replaces the current user and every cache with a Snapshot result.
// On error the Auth is left untouched.
func (a *Auth) Restore(data []byte) error {
	s, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	a.restore(s)

	return nil
}

// RestoreWithin is Restore for snapshots kept across requests. Group
// membership caches older than maxAge are dropped and reload from the
// provider; a non-positive maxAge always drops them.
func (a *Auth) RestoreWithin(data []byte, maxAge time.Duration) error {
	s, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	if maxAge <= 0 || time.Since(s.TakenAt) > maxAge {
		s.UserGroups = nil
		s.Group = nil
		s.Groups = nil
		s.GroupNames = nil
	}

	a.restore(s)

	return nil
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	var s snapshot

	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}

	return &s, nil
}

func (a *Auth) restore(s *snapshot) {
	c := newCache()

	for name, r := range s.User {
		c.user[name] = loadUser(r)
	}

	if s.Users != nil {
		c.users = make(map[string]*models.User, len(s.Users))
		for name, r := range s.Users {
			c.users[name] = loadUser(r)
		}
	}

	for name, groups := range s.UserGroups {
		if groups == nil {
			groups = make(map[string]string)
		}

		c.userGroups[name] = groups
	}

	for name, r := range s.Group {
		c.group[name] = loadGroup(r)
	}

	for _, flatten := range []bool{false, true} {
		groups, ok := s.Groups[groupsKey(flatten)]
		if !ok {
			continue
		}

		loaded := make(map[string]*models.Group, len(groups))
		for name, r := range groups {
			loaded[name] = loadGroup(r)
		}

		c.groups[flatten] = loaded
	}

	c.groupNames = s.GroupNames

	a.cache = c
	a.current = s.Current
}

func userRecords(users map[string]*models.User) map[string]record {
	if users == nil {
		return nil
	}

	out := make(map[string]record, len(users))
	for name, u := range users {
		out[name] = u.AsMap()
	}

	return out
}

func groupRecords(groups map[string]*models.Group) map[string]record {
	if groups == nil {
		return nil
	}

	out := make(map[string]record, len(groups))
	for name, g := range groups {
		out[name] = g.AsMap()
	}

	return out
}

func loadUser(r record) *models.User {
	u := models.NewUser()
	model.Load(u, r)

	return u
}

func loadGroup(r record) *models.Group {
	g := models.NewGroup()
	model.Load(g, r)

	return g
}
