package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls HTTP-boundary behavior and cookie security defaults.
type Config struct {
	MaxBodyBytes   int64
	MaxUploadBytes int64

	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// UploadDir is where multipart files are staged before the uploader
	// takes them. Empty means the OS temp dir.
	UploadDir string
}

// LoadConfigFromEnv loads API config from environment variables with safe
// defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:   envInt64("STREAMHUB_AUTH_MAX_BODY_BYTES", 1<<20),      // 1 MiB
		MaxUploadBytes: envInt64("STREAMHUB_AUTH_MAX_UPLOAD_BYTES", 10<<20),   // 10 MiB
		CookiePath:     envString("STREAMHUB_COOKIE_PATH", "/"),
		CookieDomain:   envString("STREAMHUB_COOKIE_DOMAIN", ""),
		CookieSecure:   envBool("STREAMHUB_COOKIE_SECURE", true),
		CookieSameSite: envSameSite("STREAMHUB_COOKIE_SAMESITE", http.SameSiteLaxMode),
		UploadDir:      envString("STREAMHUB_UPLOAD_DIR", ""),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
