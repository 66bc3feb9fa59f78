// Package identity is Biblio's user directory and credential store.
//
// It owns the User (profile + role) and Account (login credentials) entities
// and their PostgreSQL persistence. Password hashes are produced by
// cmd/security/password; this package never sees plaintext passwords.
//
// The directory is read on every role-restricted request (the guard
// re-resolves the caller's current role rather than trusting token claims),
// so lookups by id must stay a single indexed query with no caching layer
// in front.
package identity
