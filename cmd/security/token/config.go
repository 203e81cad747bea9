package token

import (
	"crypto/subtle"
	"os"
	"strings"
	"time"
)

// Config defines runtime configuration for the token service.
//
// Access and refresh secrets are distinct by contract: sharing one secret
// across kinds would let a refresh token pass as an access token.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token kinds.
	Issuer string

	// AccessSecret signs access tokens (HS256). Minimum 32 bytes.
	AccessSecret []byte

	// RefreshSecret signs refresh tokens (HS256). Minimum 32 bytes,
	// must differ from AccessSecret.
	RefreshSecret []byte

	// AccessTTL is the access-token lifetime (short: minutes).
	AccessTTL time.Duration

	// RefreshTTL is the refresh-token lifetime (long: days).
	RefreshTTL time.Duration
}

const minSecretBytes = 32

// DefaultConfig returns defaults suitable for development.
// Secrets are intentionally absent; they must come from the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:     "streamhub",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - STREAMHUB_ACCESS_TOKEN_SECRET
//   - STREAMHUB_REFRESH_TOKEN_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - STREAMHUB_AUTH_ISSUER
//   - STREAMHUB_ACCESS_TOKEN_TTL
//   - STREAMHUB_REFRESH_TOKEN_TTL
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("STREAMHUB_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("STREAMHUB_ACCESS_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}

	if v := os.Getenv("STREAMHUB_REFRESH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	cfg.AccessSecret = []byte(strings.TrimSpace(os.Getenv("STREAMHUB_ACCESS_TOKEN_SECRET")))
	cfg.RefreshSecret = []byte(strings.TrimSpace(os.Getenv("STREAMHUB_REFRESH_TOKEN_SECRET")))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Issuer) == "" {
		return ErrConfig
	}
	if len(c.AccessSecret) < minSecretBytes || len(c.RefreshSecret) < minSecretBytes {
		return ErrConfig
	}
	// Never share a secret between kinds.
	if len(c.AccessSecret) == len(c.RefreshSecret) &&
		subtle.ConstantTimeCompare(c.AccessSecret, c.RefreshSecret) == 1 {
		return ErrConfig
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return ErrConfig
	}
	return nil
}
