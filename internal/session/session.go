// Package session keeps per-visitor state between requests. Each session
// is a small JSON document stored under a random id in a fiber storage
// backend, with the auth façade snapshot as its main payload.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is returned by Load when no live session exists for an id.
var ErrNotFound = errors.New("session not found")

// Data represents the session data structure.
type Data struct {
	// Auth is the auth façade snapshot of the visitor.
	Auth json.RawMessage `json:"auth,omitempty"`
	// State is a pending OIDC state token.
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store reads and writes session data in storage.
type Store struct {
	storage fiber.Storage
	expiry  time.Duration
}

// New creates a store over storage. Saved sessions expire after expiry;
// zero keeps them until deleted.
func New(storage fiber.Storage, expiry time.Duration) *Store {
	if storage == nil {
		panic("storage is nil")
	}

	return &Store{storage: storage, expiry: expiry}
}

// Expiry returns the lifetime of a saved session.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Load reads the session data for the given session ID.
func (s *Store) Load(id string) (*Data, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	raw, err := s.storage.Get(id)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	d := new(Data)
	if err = json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return d, nil
}

// Save writes d under id and renews its expiry.
func (s *Store) Save(id string, d *Data) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}

	d.UpdatedAt = now

	out, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return s.storage.Set(id, out, s.expiry) //nolint:wrapcheck
}

// Delete removes the session stored under id.
func (s *Store) Delete(id string) error {
	return s.storage.Delete(id) //nolint:wrapcheck
}

// Close releases the storage backend.
func (s *Store) Close() error {
	return s.storage.Close() //nolint:wrapcheck
}

// GenerateID generates a new secure random session ID.
func GenerateID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err //nolint:wrapcheck
	}

	return hex.EncodeToString(b), nil
}
