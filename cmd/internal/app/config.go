package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// MediaDir backs the default local media uploader and the /media/
	// static route. MediaBaseURL is the public prefix written into
	// account records.
	MediaDir     string
	MediaBaseURL string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("STREAMHUB_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("STREAMHUB_LOG_LEVEL", "info"),
		LogFormat: EnvString("STREAMHUB_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("STREAMHUB_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("STREAMHUB_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("STREAMHUB_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("STREAMHUB_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("STREAMHUB_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("STREAMHUB_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("STREAMHUB_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("STREAMHUB_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("STREAMHUB_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvStringSlice("STREAMHUB_CORS_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("STREAMHUB_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("STREAMHUB_CORS_MAX_AGE_SECONDS", 600),

		MediaDir:     EnvString("STREAMHUB_MEDIA_DIR", "media"),
		MediaBaseURL: EnvString("STREAMHUB_MEDIA_BASE_URL", "/media"),
	}
}
