package models

import (
	"github.com/foundry-core/foundry/internal/model"
)

// User field names.
const (
	UserFieldUsername    = "username"
	UserFieldDisplayName = "displayName"
	UserFieldEmail       = "email"
	UserFieldFirstName   = "firstName"
	UserFieldSurname     = "surname"
)

// UserSchema is the field layout of a User. The username is the key.
var UserSchema = model.NewSchema("user", UserFieldUsername, //nolint:gochecknoglobals
	model.Field{Name: UserFieldUsername, Type: model.TypeString},
	model.Field{Name: UserFieldDisplayName, Type: model.TypeString},
	model.Field{Name: UserFieldEmail, Type: model.TypeString},
	model.Field{Name: UserFieldFirstName, Type: model.TypeString},
	model.Field{Name: UserFieldSurname, Type: model.TypeString},
)

// User represents an account known to an authentication service.
// The password is never part of the model; it stays with the provider.
type User struct {
	model.Base
}

// NewUser returns an empty user.
func NewUser() *User {
	return &User{Base: model.NewBase(UserSchema)}
}

// NewUserModel is a model.Factory for users.
func NewUserModel() model.Model {
	return NewUser()
}

// TableName is the collection users are stored in.
func (*User) TableName() string {
	return "users"
}

// Username returns the login name.
func (u *User) Username() string { return u.Text(UserFieldUsername) }

// SetUsername sets the login name.
func (u *User) SetUsername(v string) { u.MustSet(UserFieldUsername, v) }

// DisplayName returns the name shown in user interfaces.
func (u *User) DisplayName() string { return u.Text(UserFieldDisplayName) }

// SetDisplayName sets the display name.
func (u *User) SetDisplayName(v string) { u.MustSet(UserFieldDisplayName, v) }

// Email returns the email address.
func (u *User) Email() string { return u.Text(UserFieldEmail) }

// SetEmail sets the email address.
func (u *User) SetEmail(v string) { u.MustSet(UserFieldEmail, v) }

// FirstName returns the given name.
func (u *User) FirstName() string { return u.Text(UserFieldFirstName) }

// SetFirstName sets the given name.
func (u *User) SetFirstName(v string) { u.MustSet(UserFieldFirstName, v) }

// Surname returns the family name.
func (u *User) Surname() string { return u.Text(UserFieldSurname) }

// SetSurname sets the family name.
func (u *User) SetSurname(v string) { u.MustSet(UserFieldSurname, v) }

// Clone returns an independent copy of u.
func (u *User) Clone() *User {
	c := NewUser()
	model.Load(c, u.AsMap())

	return c
}
