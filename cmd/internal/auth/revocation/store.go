// Package revocation provides the fast-path token denylist.
//
// Revocation is keyed two ways: by access-token ID (jti) and by session ID,
// so that both an individual token and a whole session can be cut off without
// touching the sessions table on the hot verification path. Entries carry a
// TTL no longer than the remaining lifetime of what they revoke; the denylist
// never needs to outlive the tokens it blocks.
package revocation

import (
	"context"
	"time"
)

// AccessKey returns the denylist key for a revoked access token ID.
func AccessKey(jti string) string { return "revoked:access:" + jti }

// SessionKey returns the denylist key for a revoked session ID.
func SessionKey(sessionID string) string { return "revoked:session:" + sessionID }

// Store is the denylist boundary. Implementations must treat a lookup error
// as distinct from "absent": callers fail closed on errors.
type Store interface {
	// Put records key as revoked for ttl. A non-positive ttl is a no-op;
	// the underlying token has already expired on its own.
	Put(ctx context.Context, key string, ttl time.Duration) error

	// Exists reports whether key is currently revoked.
	Exists(ctx context.Context, key string) (bool, error)

	// ExistsAny reports whether any of keys is currently revoked.
	// Implementations should resolve all keys in a single round trip.
	ExistsAny(ctx context.Context, keys ...string) (bool, error)

	Close() error
}
