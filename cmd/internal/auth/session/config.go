package session

import (
	"os"
	"strconv"
)

// Config defines runtime behavior of the session service.
type Config struct {
	// RevokeOnPasswordChange clears the account's refresh token after a
	// successful password change, forcing re-login everywhere. Off by
	// default: a password change from a trusted session keeps that
	// session alive.
	RevokeOnPasswordChange bool

	// MaxCredentialLen bounds every credential-bearing input (identifiers
	// and presented tokens) before any expensive work happens.
	MaxCredentialLen int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		RevokeOnPasswordChange: false,
		MaxCredentialLen:       4096,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - STREAMHUB_REVOKE_ON_PASSWORD_CHANGE ("true"/"false")
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("STREAMHUB_REVOKE_ON_PASSWORD_CHANGE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.RevokeOnPasswordChange = b
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxCredentialLen <= 0 {
		return ErrConfig
	}
	return nil
}
