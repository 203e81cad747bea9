package app

import (
	"errors"
	"os"
	"strings"

	"streamhub/cmd/security/token"
)

// ValidateSecurityConfig enforces streamhub's security policy at startup.
//
// Fail-fast is intentional: booting with missing or shared token secrets
// would silently issue unverifiable or cross-forgeable tokens.
func ValidateSecurityConfig() error {
	access := strings.TrimSpace(os.Getenv("STREAMHUB_ACCESS_TOKEN_SECRET"))
	refresh := strings.TrimSpace(os.Getenv("STREAMHUB_REFRESH_TOKEN_SECRET"))

	if access == "" {
		return errors.New("security policy: STREAMHUB_ACCESS_TOKEN_SECRET is missing")
	}
	if refresh == "" {
		return errors.New("security policy: STREAMHUB_REFRESH_TOKEN_SECRET is missing")
	}
	if access == refresh {
		return errors.New("security policy: access and refresh token secrets must differ")
	}

	// Full validation (lengths, TTLs) lives with the token service.
	if _, err := token.LoadConfigFromEnv(); err != nil {
		return errors.New("security policy: token configuration invalid (secrets must be at least 32 bytes, TTLs positive)")
	}
	return nil
}
