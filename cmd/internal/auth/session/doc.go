// Package session implements Biblio's session and token lifecycle.
//
// It provides a multi-device session model with refresh-token rotation,
// reuse detection, and per-session revocation backed by a fast denylist.
//
// Access tokens are signed JWTs (HS256) and are short-lived. Refresh tokens
// are signed JWTs carrying only the session ID; the server stores their
// HMAC-SHA256 hash in Postgres (SHA-256 fallback for dev when
// BIBLIO_TOKEN_HMAC_KEY is unset), never the token itself.
//
// Transport (HTTP) integration is intentionally out of scope here.
package session
