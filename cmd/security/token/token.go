package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

// KeyEnvVar names the environment variable carrying the refresh-token
// hashing key. The value itself is the secret, not this name.
const KeyEnvVar = "BIBLIO_TOKEN_HMAC_KEY"

// LoadKey reads the hashing key from the environment and enforces a
// minimum length. Missing or blank -> ErrKeyMissing; shorter than
// minBytes -> ErrKeyTooShort.
func LoadKey(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnvVar))
	if raw == "" {
		return nil, ErrKeyMissing
	}
	if minBytes > 0 && len(raw) < minBytes {
		return nil, ErrKeyTooShort
	}
	return []byte(raw), nil
}

// RefreshDigest produces the storable digest of a refresh token. With a
// key configured it is HMAC-SHA256 under that key; without one it degrades
// to plain SHA-256, which is only acceptable outside production.
func RefreshDigest(tok string) string {
	if key := strings.TrimSpace(os.Getenv(KeyEnvVar)); key != "" {
		return hmacSHA256Hex(tok, []byte(key))
	}
	return sha256Hex(tok)
}

// RefreshDigestKeyed is RefreshDigest with the degraded mode removed: it
// fails instead of falling back when no adequate key is configured.
func RefreshDigestKeyed(tok string, minBytes int) (string, error) {
	key, err := LoadKey(minBytes)
	if err != nil {
		return "", err
	}
	return hmacSHA256Hex(tok, key), nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}
