// Package resettoken issues and redeems one time password reset tokens.
package resettoken

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/models"
)

// Collection holds one row per issued token.
const Collection = "reset_tokens"

var (
	// ErrTokenNotFound is returned for an unknown token.
	ErrTokenNotFound = errors.New("reset token not found")
	// ErrTokenExpired is returned for a token past its expiration.
	ErrTokenExpired = errors.New("reset token expired")
	// ErrUsernameEmpty is returned when a token is requested without username.
	ErrUsernameEmpty = errors.New("username cannot be empty")
)

// Store keeps reset tokens in a database.
type Store struct {
	db  *db.Database
	now func() time.Time
}

// New returns a Store on d.
func New(d *db.Database) *Store {
	return &Store{db: d, now: time.Now}
}

// Create issues a token for username valid for ttl.
func (s *Store) Create(ctx context.Context, username string, ttl time.Duration) (*models.ResetToken, error) {
	if username == "" {
		return nil, ErrUsernameEmpty
	}

	t := models.NewResetToken()
	t.SetID(uuid.NewString())
	t.SetToken(uuid.NewString())
	t.SetUsername(username)
	t.SetExpiration(s.now().Add(ttl).Unix())

	if err := s.db.WriteObject(ctx, t, Collection); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate returns the username a token was issued for.
func (s *Store) Validate(ctx context.Context, token string) (string, error) {
	t, err := s.load(ctx, token)
	if err != nil {
		return "", err
	}

	if t.Expired(s.now()) {
		return "", ErrTokenExpired
	}

	return t.Username(), nil
}

// Consume validates token and removes it.
func (s *Store) Consume(ctx context.Context, token string) (string, error) {
	username, err := s.Validate(ctx, token)
	if err != nil {
		return "", err
	}

	if err = s.db.DeleteObject(ctx, Collection, byToken(token)); err != nil {
		return "", err
	}

	return username, nil
}

// Purge removes every expired token and returns how many there were.
func (s *Store) Purge(ctx context.Context) (int, error) {
	expired := db.Conditions{db.Lte(models.ResetTokenFieldExpiration, s.now().Unix())}

	n, err := s.db.CountObjects(ctx, Collection, expired)
	if err != nil || n == 0 {
		return 0, err
	}

	return n, s.db.DeleteObject(ctx, Collection, expired)
}

func (s *Store) load(ctx context.Context, token string) (*models.ResetToken, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	m, err := s.db.LoadObject(ctx, models.NewResetTokenModel, Collection, byToken(token))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTokenNotFound
	}

	if err != nil {
		return nil, err
	}

	return m.(*models.ResetToken), nil //nolint:forcetypeassert
}

func byToken(token string) db.Conditions {
	return db.Conditions{db.Eq(models.ResetTokenFieldToken, token)}
}
