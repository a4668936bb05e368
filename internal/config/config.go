// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

// EnvConfigJSON names the environment variable holding a JSON config override.
const EnvConfigJSON = "FOUNDRY_CONFIG_JSON"

const (
	defaultService      = "memory"
	defaultAdminGroup   = "admin"
	defaultHash         = "hmac-sha256"
	defaultHashRounds   = 1000
	defaultCookieName   = "foundry_session"
	defaultSessionTTL   = 24 * time.Hour
	defaultSessionTbl   = "sessions"
	defaultShutDown     = 5
	defaultMongoTimeout = 10 * time.Second
	defaultResetTTL     = time.Hour
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings and fill in defaults.
// Provider sections are validated by the providers when they are built,
// only the one selected by service is required to be complete.
func validate(c *Config) error {
	// validate webserver listening port
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	// validate access-control-allow-origin
	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDown
	}

	checks := []struct {
		name    string
		value   *string
		allowed []string
	}{
		{"auth.service", &c.Auth.Service, []string{"memory", "ldap", "crowd"}},
		{"access.service", &c.Access.Service, []string{"memory", "database"}},
		{"database.service", &c.Database.Service, []string{"memory", "sql", "mongo"}},
		{"webserver.session.storage", &c.Webserver.Session.Storage, []string{"memory", "redis", "mysql", "postgres"}},
	}

	for _, check := range checks {
		if *check.value == "" {
			*check.value = defaultService
		}

		if !slices.Contains(check.allowed, *check.value) {
			return errors.Wrapf(ErrUnknownService, "%s %q", check.name, *check.value)
		}
	}

	setDefaults(c)

	return nil
}

func setDefaults(c *Config) {
	if c.Auth.AdminGroup == "" {
		c.Auth.AdminGroup = defaultAdminGroup
	}

	if c.Auth.HashAlgorithm == "" {
		c.Auth.HashAlgorithm = defaultHash
	}

	if c.Auth.HashRounds == 0 {
		c.Auth.HashRounds = defaultHashRounds
	}

	if c.Auth.ResetTokenTTL == 0 {
		c.Auth.ResetTokenTTL = defaultResetTTL
	}

	if c.Webserver.Session.CookieName == "" {
		c.Webserver.Session.CookieName = defaultCookieName
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = defaultSessionTTL
	}

	if c.Webserver.Session.Table == "" {
		c.Webserver.Session.Table = defaultSessionTbl
	}

	if c.Database.Mongo.Timeout == 0 {
		c.Database.Mongo.Timeout = defaultMongoTimeout
	}
}
