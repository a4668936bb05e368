package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Host string `validate:"required"`
	Port int    `validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     sampleConfig
		wantErr bool
	}{
		{name: "valid", cfg: sampleConfig{Host: "localhost", Port: 389}},
		{name: "missing host", cfg: sampleConfig{Port: 389}, wantErr: true},
		{name: "negative port", cfg: sampleConfig{Host: "localhost", Port: -1}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate("sample", tc.cfg)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), "sample")
		})
	}
}

func TestConnection(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Connection("ldap", cause)

	require.ErrorIs(t, err, ErrServiceConnection)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ldap")
}

func TestUnknown(t *testing.T) {
	err := Unknown("auth", "kerberos")

	require.ErrorIs(t, err, ErrUnknownService)
	assert.Contains(t, err.Error(), "kerberos")
}
