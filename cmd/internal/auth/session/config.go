package session

import (
	"os"
	"time"
)

// SigningKeyEnv names the environment variable carrying the HS256 signing key.
const SigningKeyEnv = "BIBLIO_AUTH_SIGNING_KEY"

// minSigningKeyBytes is the minimum accepted HS256 key length.
const minSigningKeyBytes = 32

// Config defines all runtime configuration for the session subsystem.
//
// It controls access-token TTL, refresh-token TTL, clock skew tolerance,
// and the HS256 signing key. It is intentionally explicit and
// environment-driven so production deployments can tune security
// parameters without code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// SigningKey is the HMAC-SHA256 key used to sign and verify tokens.
	// Must be at least 32 bytes.
	SigningKey []byte

	// AccessTokenTTL defines the lifetime of access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL defines the lifetime of refresh tokens and thus the
	// maximum idle lifetime of a session. Rotation slides the window.
	RefreshTokenTTL time.Duration

	// ClockSkew defines the allowed time skew for iat/nbf validation.
	// It never extends a token past its exp.
	ClockSkew time.Duration
}

// DefaultConfig returns a secure default configuration suitable for development.
//
// Production environments should override values via environment variables.
func DefaultConfig() Config {
	return Config{
		Issuer:          "biblio",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		ClockSkew:       30 * time.Second,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return ErrConfig
	}
	if len(c.SigningKey) < minSigningKeyBytes {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	// Access tokens must be the short-lived half of the pair.
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - BIBLIO_AUTH_SIGNING_KEY (at least 32 bytes)
//
// Optional (durations must be valid Go duration strings):
//   - BIBLIO_AUTH_ISSUER
//   - BIBLIO_AUTH_ACCESS_TTL
//   - BIBLIO_AUTH_REFRESH_TTL
//   - BIBLIO_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("BIBLIO_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("BIBLIO_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("BIBLIO_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("BIBLIO_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.SigningKey = []byte(os.Getenv(SigningKeyEnv))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
