package password

import "testing"

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Params.MemoryKiB == 0 || cfg.Params.Iterations == 0 || cfg.Params.Parallelism == 0 {
		t.Fatalf("defaults must be non-zero: %+v", cfg.Params)
	}
	if cfg.Policy.MinLength <= 0 || cfg.Policy.MaxLength < cfg.Policy.MinLength {
		t.Fatalf("policy defaults invalid: %+v", cfg.Policy)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BIBLIO_PASSWORD_MIN_LEN", "10")
	t.Setenv("BIBLIO_ARGON2_ITERATIONS", "4")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Policy.MinLength != 10 {
		t.Fatalf("expected min len 10, got %d", cfg.Policy.MinLength)
	}
	if cfg.Params.Iterations != 4 {
		t.Fatalf("expected iterations 4, got %d", cfg.Params.Iterations)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("BIBLIO_ARGON2_MEMORY_KIB", "not-a-number")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for invalid memory setting")
	}
}

func TestFromEnv_MinGreaterThanMax(t *testing.T) {
	t.Setenv("BIBLIO_PASSWORD_MIN_LEN", "64")
	t.Setenv("BIBLIO_PASSWORD_MAX_LEN", "16")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when min_len > max_len")
	}
}
