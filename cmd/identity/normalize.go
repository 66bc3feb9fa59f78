package identity

import (
	"regexp"
	"strings"
)

// emailRe is a pragmatic format check; deliverability is not our problem.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsValidEmail reports whether s looks like an email address after trimming.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && len(s) <= 254 && emailRe.MatchString(s)
}
