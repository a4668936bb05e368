// Package provider holds the construction-time failure taxonomy shared by
// every pluggable service (authentication, access and database providers).
//
// Only construction may fail with an error: a provider that could not be
// configured or could not reach its backing system has no sensible fallback
// value. Once constructed, providers report failures as false or empty results.
package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation is returned when a required provider option is missing or invalid.
	ErrValidation = errors.New("invalid provider configuration")

	// ErrServiceConnection is returned when a provider cannot reach or bind to its backend.
	ErrServiceConnection = errors.New("service connection failed")

	// ErrUnknownService is returned when a configured provider name is not supported.
	ErrUnknownService = errors.New("unknown service")
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals

// Validate checks cfg against its `validate` struct tags.
// The returned error wraps ErrValidation and names every failing option.
func Validate(service string, cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%s: %w: %w", service, ErrValidation, err)
	}

	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		names = append(names, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%s: %w: %s", service, ErrValidation, strings.Join(names, ", "))
}

// Connection wraps a backend failure met during construction.
func Connection(service string, err error) error {
	return fmt.Errorf("%s: %w: %w", service, ErrServiceConnection, err)
}

// Unknown reports an unsupported provider name for a service family.
func Unknown(family, name string) error {
	return fmt.Errorf("%s: %w %q", family, ErrUnknownService, name)
}
