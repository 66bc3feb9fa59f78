package app

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BIBLIO_TEST_STR", "  hello  ")
	t.Setenv("BIBLIO_TEST_BOOL", "true")
	t.Setenv("BIBLIO_TEST_INT", "42")
	t.Setenv("BIBLIO_TEST_DUR", "90s")

	if got := EnvString("BIBLIO_TEST_STR", "def"); got != "hello" {
		t.Fatalf("EnvString = %q", got)
	}
	if got := EnvBool("BIBLIO_TEST_BOOL", false); !got {
		t.Fatalf("EnvBool = %v", got)
	}
	if got := EnvInt("BIBLIO_TEST_INT", 1); got != 42 {
		t.Fatalf("EnvInt = %d", got)
	}
	if got := EnvDuration("BIBLIO_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("EnvDuration = %v", got)
	}
}

func TestEnvHelpersFallBackOnBadValues(t *testing.T) {
	t.Setenv("BIBLIO_TEST_BOOL", "maybe")
	t.Setenv("BIBLIO_TEST_INT", "-3")
	t.Setenv("BIBLIO_TEST_DUR", "eventually")

	if got := EnvString("BIBLIO_TEST_MISSING", "def"); got != "def" {
		t.Fatalf("EnvString = %q", got)
	}
	if got := EnvBool("BIBLIO_TEST_BOOL", true); !got {
		t.Fatalf("EnvBool must keep the default on parse failure")
	}
	if got := EnvInt("BIBLIO_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt = %d", got)
	}
	if got := EnvDuration("BIBLIO_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration = %v", got)
	}
}
