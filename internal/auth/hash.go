package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha3"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/blake2b"
)

// Supported password hash algorithms.
const (
	HashHMACSHA256     = "hmac-sha256"
	HashHMACSHA512     = "hmac-sha512"
	HashHMACSHA3256    = "hmac-sha3-256"
	HashHMACBlake2b256 = "hmac-blake2b-256"
	HashArgon2id       = "argon2id"
)

// Hasher hardens passwords before they are stored.
//
// The hmac algorithms apply the keyed hash rounds times, each round hashing
// the hex digest of the previous one. argon2id ignores key and rounds and
// uses the library defaults.
type Hasher struct {
	algorithm string
	key       []byte
	rounds    int
	newHash   func() hash.Hash
}

// NewHasher returns a Hasher for algorithm. rounds below 1 count as 1.
func NewHasher(algorithm, key string, rounds int) (*Hasher, error) {
	h := &Hasher{algorithm: algorithm, key: []byte(key), rounds: max(rounds, 1)}

	switch algorithm {
	case HashArgon2id:
		return h, nil
	case HashHMACSHA256:
		h.newHash = sha256.New
	case HashHMACSHA512:
		h.newHash = sha512.New
	case HashHMACSHA3256:
		h.newHash = func() hash.Hash { return sha3.New256() }
	case HashHMACBlake2b256:
		h.newHash = func() hash.Hash {
			b, _ := blake2b.New256(nil)
			return b
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, algorithm)
	}

	if len(h.key) == 0 {
		return nil, fmt.Errorf("%s: %w", algorithm, ErrHashKeyEmpty)
	}

	return h, nil
}

// Algorithm returns the configured algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash returns the stored form of password.
func (h *Hasher) Hash(password string) (string, error) {
	if h.algorithm == HashArgon2id {
		return argon2id.CreateHash(password, argon2id.DefaultParams)
	}

	digest := password
	for range h.rounds {
		mac := hmac.New(h.newHash, h.key)
		mac.Write([]byte(digest))
		digest = hex.EncodeToString(mac.Sum(nil))
	}

	return digest, nil
}

// Verify reports whether password hashes to stored.
func (h *Hasher) Verify(password, stored string) bool {
	if h.algorithm == HashArgon2id {
		ok, err := argon2id.ComparePasswordAndHash(password, stored)
		return err == nil && ok
	}

	digest, err := h.Hash(password)
	if err != nil {
		return false
	}

	return hmac.Equal([]byte(digest), []byte(stored))
}
