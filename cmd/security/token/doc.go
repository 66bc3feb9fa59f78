// Package token provides server-side hashing for opaque credentials.
//
// Refresh tokens are never persisted in plaintext: only a keyed hash is
// stored, so possession of the database value alone cannot be used to
// authenticate. With BIBLIO_TOKEN_HMAC_KEY set the hash is HMAC-SHA256
// under that key; without it the package falls back to plain SHA-256,
// which is acceptable for development only.
package token
