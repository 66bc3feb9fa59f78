package session

import "errors"

var (
	// ErrInvalidToken is returned when a token fails verification or validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a token is past its expiry.
	// Expiry is exclusive: a token presented at exactly exp is expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrSessionNotFound is returned when a token does not match any session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the backing session is expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned when the backing session has been revoked.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrRefreshReuseDetected is returned when a rotated (replaced) refresh
	// token is presented again. The session has already been revoked and
	// denylisted by the time callers see this error.
	ErrRefreshReuseDetected = errors.New("refresh token reuse detected")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
