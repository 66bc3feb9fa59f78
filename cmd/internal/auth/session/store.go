package session

import (
	"context"
	"net"
	"time"
)

// Platform represents the client platform associated with a session.
type Platform string

const (
	// PlatformWeb is a browser-based session.
	PlatformWeb Platform = "web"
	// PlatformIOS is an iOS native session.
	PlatformIOS Platform = "ios"
	// PlatformAndroid is an Android native session.
	PlatformAndroid Platform = "android"
	// PlatformDesktop is a desktop (macOS/Windows/Linux) session.
	PlatformDesktop Platform = "desktop"
	// PlatformUnknown is used when the client platform is not known.
	PlatformUnknown Platform = "unknown"
)

// NormalizePlatform maps arbitrary client input onto a known Platform.
func NormalizePlatform(s string) Platform {
	switch Platform(s) {
	case PlatformWeb, PlatformIOS, PlatformAndroid, PlatformDesktop:
		return Platform(s)
	default:
		return PlatformUnknown
	}
}

// DeviceContext describes the client device that owns a session.
type DeviceContext struct {
	Platform  Platform
	Label     string
	UserAgent string
	IP        net.IP
}

// Row mirrors the biblio.sessions row used by the session subsystem.
//
// RefreshTokenHash holds the HMAC of the currently valid refresh token;
// AccessTokenID holds the jti of the most recently issued access token so
// reuse detection can denylist it.
type Row struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	AccessTokenID    string
	Platform         Platform
	Label            string
	UserAgent        string
	IP               net.IP
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastUsedAt       *time.Time
	RevokedAt        *time.Time
	RevocationReason *string
}

// Revoked reports whether the session has been revoked.
func (r Row) Revoked() bool { return r.RevokedAt != nil }

// Expired reports whether the session is expired at now (exclusive boundary).
func (r Row) Expired(now time.Time) bool { return !r.ExpiresAt.After(now) }

// Store abstracts persistence for session state.
//
// UpdateRefreshHash is a compare-and-swap on the previous refresh hash;
// under concurrent rotation exactly one caller wins. That property is the
// foundation of reuse detection and must hold in every implementation.
type Store interface {
	// Create inserts a new session row. The caller supplies the session ID
	// because both tokens embed it before the row exists.
	Create(ctx context.Context, now time.Time, sessionID, userID string, dev DeviceContext, refreshHash, accessTokenID string, expiresAt time.Time) error

	// GetByID loads a session row by ID, revoked or not.
	GetByID(ctx context.Context, sessionID string) (Row, error)

	// UpdateRefreshHash atomically replaces the refresh hash, current access
	// token ID, and expiry, but only if the stored hash still equals
	// prevHash and the session is live at now. Returns false when the swap
	// did not apply.
	UpdateRefreshHash(ctx context.Context, now time.Time, sessionID, prevHash, newHash, newAccessTokenID string, newExpiresAt time.Time) (bool, error)

	// MarkRevoked revokes a session if it is not already revoked.
	// Returns the resulting row and whether this call changed it.
	// A missing session yields ErrSessionNotFound.
	MarkRevoked(ctx context.Context, now time.Time, sessionID, reason string) (Row, bool, error)

	// ListActiveForUser returns the user's non-revoked, unexpired sessions,
	// newest first.
	ListActiveForUser(ctx context.Context, now time.Time, userID string) ([]Row, error)

	// DeleteExpiredBefore removes sessions whose expiry predates cutoff.
	// Returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Touch updates last_used_at for a session (best-effort).
	Touch(ctx context.Context, now time.Time, sessionID string) error
}
