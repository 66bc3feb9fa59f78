package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Issuer != "biblio" {
		t.Fatalf("Issuer = %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
	if cfg.ClockSkew != 30*time.Second {
		t.Fatalf("ClockSkew = %v", cfg.ClockSkew)
	}
}

func TestLoadConfigFromEnvRequiresSigningKey(t *testing.T) {
	t.Setenv(SigningKeyEnv, "")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}

	t.Setenv(SigningKeyEnv, "too-short")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for short key, got %v", err)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv(SigningKeyEnv, testSigningKey)
	t.Setenv("BIBLIO_AUTH_ISSUER", "biblio-test")
	t.Setenv("BIBLIO_AUTH_ACCESS_TTL", "5m")
	t.Setenv("BIBLIO_AUTH_REFRESH_TTL", "168h")
	t.Setenv("BIBLIO_AUTH_CLOCK_SKEW", "10s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Issuer != "biblio-test" {
		t.Fatalf("Issuer = %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Fatalf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
	if cfg.ClockSkew != 10*time.Second {
		t.Fatalf("ClockSkew = %v", cfg.ClockSkew)
	}
}

func TestLoadConfigFromEnvRejectsBadDurations(t *testing.T) {
	t.Setenv(SigningKeyEnv, testSigningKey)

	for env, val := range map[string]string{
		"BIBLIO_AUTH_ACCESS_TTL":  "soon",
		"BIBLIO_AUTH_REFRESH_TTL": "-1h",
		"BIBLIO_AUTH_CLOCK_SKEW":  "-1s",
	} {
		t.Setenv(env, val)
		if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
			t.Fatalf("%s=%s: expected ErrConfig, got %v", env, val, err)
		}
		t.Setenv(env, "")
	}
}

func TestValidateRejectsInvertedTTLs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SigningKey = []byte(strings.Repeat("k", 32))
	cfg.AccessTokenTTL = time.Hour
	cfg.RefreshTokenTTL = time.Minute

	if err := cfg.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig when refresh TTL <= access TTL, got %v", err)
	}
}
