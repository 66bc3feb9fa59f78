package api

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	if cfg.TrustProxy {
		t.Fatalf("TrustProxy must default to false")
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.LoginIPMax != 20 || cfg.LoginIPWindow != 5*time.Minute {
		t.Fatalf("IP throttle defaults = %d/%v", cfg.LoginIPMax, cfg.LoginIPWindow)
	}
	if cfg.LoginIdentMax != 5 || cfg.LoginIdentWindow != 15*time.Minute {
		t.Fatalf("identifier throttle defaults = %d/%v", cfg.LoginIdentMax, cfg.LoginIdentWindow)
	}
}

func TestLoadConfigFromEnvOverridesAndBadValues(t *testing.T) {
	t.Setenv("BIBLIO_AUTH_TRUST_PROXY", "true")
	t.Setenv("BIBLIO_AUTH_MAX_BODY_BYTES", "4096")
	t.Setenv("BIBLIO_AUTH_LOGIN_IP_MAX", "50")
	t.Setenv("BIBLIO_AUTH_LOGIN_IP_WINDOW", "bogus")

	cfg := LoadConfigFromEnv()
	if !cfg.TrustProxy {
		t.Fatalf("TrustProxy override not applied")
	}
	if cfg.MaxBodyBytes != 4096 {
		t.Fatalf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.LoginIPMax != 50 {
		t.Fatalf("LoginIPMax = %d", cfg.LoginIPMax)
	}
	// Unparseable values fall back to the default.
	if cfg.LoginIPWindow != 5*time.Minute {
		t.Fatalf("LoginIPWindow = %v", cfg.LoginIPWindow)
	}
}
