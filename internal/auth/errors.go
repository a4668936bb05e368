package auth

import "errors"

var (
	// ErrNoIDToken is returned when no ID token cookie is present.
	ErrNoIDToken = errors.New("no id_token in request")

	// ErrUserNotFound is returned when a user cannot be found in the directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
	// This typically indicates a misconfigured LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrUnsupportedHash is returned for an unknown hash algorithm.
	ErrUnsupportedHash = errors.New("unsupported hash algorithm")

	// ErrHashKeyEmpty is returned when a keyed hash is configured without key.
	ErrHashKeyEmpty = errors.New("hash key cannot be empty")

	// ErrSnapshotVersion is returned when restoring a snapshot of another format.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)
