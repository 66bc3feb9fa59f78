package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// DatabaseURL is required: the auth service cannot run without its
	// identity and session storage.
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// RedisAddr selects the revocation denylist backend. Empty means the
	// in-process store, which is only acceptable for a single instance.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session pruning: expired rows older than SessionRetention are
	// deleted every SessionPruneInterval.
	SessionPruneInterval time.Duration
	SessionRetention     time.Duration

	// Security policy:
	// If true, BIBLIO_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and
	// refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("BIBLIO_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("BIBLIO_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("BIBLIO_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BIBLIO_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BIBLIO_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BIBLIO_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("BIBLIO_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BIBLIO_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("BIBLIO_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BIBLIO_DB_MIN_CONNS", 0),

		RedisAddr:     EnvString("BIBLIO_REDIS_ADDR", ""),
		RedisPassword: EnvString("BIBLIO_REDIS_PASSWORD", ""),
		RedisDB:       EnvInt("BIBLIO_REDIS_DB", 0),

		SessionPruneInterval: EnvDuration("BIBLIO_SESSION_PRUNE_INTERVAL", time.Hour),
		SessionRetention:     EnvDuration("BIBLIO_SESSION_RETENTION", 30*24*time.Hour),

		RequireTokenHMAC: EnvBool("BIBLIO_REQUIRE_TOKEN_HMAC", false),
	}
}
