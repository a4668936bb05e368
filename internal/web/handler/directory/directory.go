// Package directory lists users and groups for administrators.
package directory

import (
	"errors"
	"maps"
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/web/handler"
	authmiddleware "github.com/foundry-core/foundry/internal/web/middleware/auth"
	"github.com/foundry-core/foundry/internal/web/request"
)

const (
	// UsersPath lists users.
	UsersPath = "/users"
	// GroupsPath lists groups with their flattened members.
	GroupsPath = "/groups"
)

// User is one entry of the user listing.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Group is one entry of the group listing.
type Group struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Users       []string `json:"users"`
	Subgroups   []string `json:"subgroups"`
}

// Service is the directory handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the directory handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the directory handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.cfg = cfg

	app.Get(UsersPath, authmiddleware.RequireAdmin(), s.Users)
	app.Get(GroupsPath, authmiddleware.RequireAdmin(), s.Groups)

	return nil
}

// Users returns every user ordered by username.
func (s *Service) Users(c *fiber.Ctx) error {
	users := request.Get(c).Auth.Users()

	out := make([]User, 0, len(users))
	for _, name := range slices.Sorted(maps.Keys(users)) {
		u := users[name]
		out = append(out, User{Username: name, DisplayName: u.DisplayName(), Email: u.Email()})
	}

	return c.JSON(out)
}

// Groups returns every group ordered by name. Users include the members
// of subgroups unless ?flatten=false is given.
func (s *Service) Groups(c *fiber.Ctx) error {
	groups := request.Get(c).Auth.Groups(c.QueryBool("flatten", true))

	out := make([]Group, 0, len(groups))
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		g := groups[name]

		users := g.Users()
		slices.Sort(users)

		subgroups := g.Subgroups()
		slices.Sort(subgroups)

		out = append(out, Group{
			Name:        name,
			Description: g.Description(),
			Users:       nonNil(users),
			Subgroups:   nonNil(subgroups),
		})
	}

	return c.JSON(out)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}

	return v
}
