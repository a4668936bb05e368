package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherIteratesRounds(t *testing.T) {
	h, err := NewHasher(HashHMACSHA256, "secret", 2)
	require.NoError(t, err)

	round := func(in string) string {
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte(in))

		return hex.EncodeToString(mac.Sum(nil))
	}

	got, err := h.Hash("pw")
	require.NoError(t, err)
	assert.Equal(t, round(round("pw")), got)
}

func TestHasherAlgorithms(t *testing.T) {
	testCases := []struct {
		algorithm string
		length    int
	}{
		{HashHMACSHA256, 64},
		{HashHMACSHA512, 128},
		{HashHMACSHA3256, 64},
		{HashHMACBlake2b256, 64},
	}

	for _, tc := range testCases {
		t.Run(tc.algorithm, func(t *testing.T) {
			h, err := NewHasher(tc.algorithm, "k", 3)
			require.NoError(t, err)
			assert.Equal(t, tc.algorithm, h.Algorithm())

			out, err := h.Hash("password")
			require.NoError(t, err)
			assert.Len(t, out, tc.length)

			again, err := h.Hash("password")
			require.NoError(t, err)
			assert.Equal(t, out, again)

			assert.True(t, h.Verify("password", out))
			assert.False(t, h.Verify("other", out))
		})
	}
}

func TestHasherArgon2id(t *testing.T) {
	h, err := NewHasher(HashArgon2id, "", 0)
	require.NoError(t, err)

	out, err := h.Hash("password")
	require.NoError(t, err)
	assert.Contains(t, out, "$argon2id$")
	assert.True(t, h.Verify("password", out))
	assert.False(t, h.Verify("nope", out))
}

func TestNewHasherErrors(t *testing.T) {
	_, err := NewHasher("md5", "k", 1)
	require.ErrorIs(t, err, ErrUnsupportedHash)

	_, err = NewHasher(HashHMACSHA512, "", 1)
	require.ErrorIs(t, err, ErrHashKeyEmpty)
}
