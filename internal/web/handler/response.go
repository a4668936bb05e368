package handler

import (
	"errors"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/foundry-core/foundry/internal/web/request"
)

type (
	// FieldError describes one failed validation rule.
	FieldError struct {
		Field string `json:"field"`
		Tag   string `json:"tag"`
	}

	// ErrorResponse is the body of every failed request.
	ErrorResponse struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors,omitempty"`
	}

	// UserResponse describes the current user.
	UserResponse struct {
		Username    string   `json:"username"`
		DisplayName string   `json:"displayName,omitempty"`
		Email       string   `json:"email,omitempty"`
		Groups      []string `json:"groups"`
		Admin       bool     `json:"admin"`
	}
)

var validate = validator.New() //nolint:gochecknoglobals

// Validate checks data against its `validate` struct tags.
func Validate(data any) []FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []FieldError{{Tag: err.Error()}}
	}

	out := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}

	return out
}

// Fail sends an ErrorResponse with status.
func Fail(c *fiber.Ctx, status int, msg string, errs ...FieldError) error {
	return c.Status(status).JSON(ErrorResponse{Message: msg, Errors: errs})
}

// CurrentUser builds the UserResponse of the logged in user.
func CurrentUser(st *request.State) UserResponse {
	username := st.Auth.CurrentUser()
	groups := slices.Sorted(maps.Keys(st.Auth.UserGroups(username)))
	if groups == nil {
		groups = []string{}
	}

	resp := UserResponse{
		Username: username,
		Groups:   groups,
		Admin:    st.Auth.IsAdmin(),
	}

	if u, ok := st.Auth.User(username); ok {
		resp.DisplayName = u.DisplayName()
		resp.Email = u.Email()
	}

	return resp
}
