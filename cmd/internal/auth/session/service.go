package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"biblio/cmd/identity"
	"biblio/cmd/identity/ids"
	"biblio/cmd/internal/auth/revocation"
	"biblio/cmd/security/token"
)

// Directory resolves a user's current role and account status. The service
// consults it on every rotation so role changes and suspensions take effect
// at the next refresh at the latest.
type Directory interface {
	FindUserByID(ctx context.Context, id string) (identity.User, error)
}

// Service implements the high-level session operations for Biblio.
//
// It issues sessions (access + refresh), verifies access tokens against the
// revocation denylist, supports per-session revocation, and performs refresh
// rotation with reuse detection via a compare-and-swap on the stored hash.
type Service struct {
	cfg       Config
	codec     *TokenCodec
	store     Store
	denylist  revocation.Store
	directory Directory
}

// Issued is the result of issuing or rotating a session.
type Issued struct {
	SessionID    string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service from its collaborators.
func NewService(cfg Config, codec *TokenCodec, store Store, denylist revocation.Store, directory Directory) *Service {
	return &Service{cfg: cfg, codec: codec, store: store, denylist: denylist, directory: directory}
}

// denyTTL bounds denylist entries to the worst-case remaining lifetime of
// any outstanding access token.
func (s *Service) denyTTL() time.Duration {
	return s.cfg.AccessTokenTTL + s.cfg.ClockSkew
}

// IssueSession creates a new session row and returns a fresh token pair.
//
// Refresh tokens are never persisted in plaintext; only their HMAC hash and
// the current access-token jti land in the database.
func (s *Service) IssueSession(ctx context.Context, now time.Time, user identity.User, dev DeviceContext) (Issued, error) {
	sessionID, err := ids.NewULID(now)
	if err != nil {
		return Issued{}, err
	}
	refreshExp := now.Add(s.cfg.RefreshTokenTTL)

	refreshToken, err := s.codec.IssueRefresh(sessionID, now, refreshExp)
	if err != nil {
		return Issued{}, err
	}
	accessToken, jti, accessExp, err := s.codec.IssueAccess(user.ID, sessionID, user.Role, now)
	if err != nil {
		return Issued{}, err
	}

	refreshHash := token.RefreshDigest(refreshToken)
	if err := s.store.Create(ctx, now, sessionID, user.ID, dev, refreshHash, jti, refreshExp); err != nil {
		return Issued{}, err
	}

	return Issued{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
	}, nil
}

// Verify validates an access token and checks the revocation denylist.
//
// This is the hot path: one signature verification plus one denylist round
// trip, no primary-storage read. A denylist error rejects the token.
func (s *Service) Verify(ctx context.Context, accessToken string, now time.Time) (AccessClaims, error) {
	claims, err := s.codec.VerifyAccess(accessToken, now)
	if err != nil {
		return AccessClaims{}, err
	}

	revoked, err := s.denylist.ExistsAny(ctx,
		revocation.AccessKey(claims.TokenID),
		revocation.SessionKey(claims.SessionID),
	)
	if err != nil {
		// Fail closed: an unreachable denylist must not admit tokens.
		return AccessClaims{}, err
	}
	if revoked {
		return AccessClaims{}, ErrSessionRevoked
	}

	return claims, nil
}

// Rotate exchanges a refresh token for a fresh pair, sliding the session's
// expiry window.
//
// Security model:
//   - The presented token must verify and its session must be live.
//   - The swap of stored hash, jti, and expiry is a compare-and-swap on the
//     previous hash; under a concurrent double-spend exactly one caller wins.
//   - A CAS loss against a still-live session means the presented token was
//     already rotated out: the session is revoked, its id and last jti are
//     denylisted, and ErrRefreshReuseDetected is returned.
func (s *Service) Rotate(ctx context.Context, now time.Time, refreshToken string) (Issued, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	// Basic sanity bounds to avoid pathological inputs.
	if refreshToken == "" || len(refreshToken) > 4096 {
		return Issued{}, ErrInvalidToken
	}

	sessionID, err := s.codec.ParseRefresh(refreshToken, now)
	if err != nil {
		return Issued{}, err
	}

	row, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return Issued{}, err
	}
	if row.Revoked() {
		return Issued{}, ErrSessionRevoked
	}
	if row.Expired(now) {
		return Issued{}, ErrSessionExpired
	}

	// Re-read the user so rotations pick up role changes and suspensions.
	user, err := s.directory.FindUserByID(ctx, row.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Issued{}, ErrSessionRevoked
		}
		return Issued{}, err
	}
	if user.Status != identity.StatusActive {
		return Issued{}, ErrSessionRevoked
	}

	prevHash := token.RefreshDigest(refreshToken)
	newRefreshExp := now.Add(s.cfg.RefreshTokenTTL)

	newRefresh, err := s.codec.IssueRefresh(sessionID, now, newRefreshExp)
	if err != nil {
		return Issued{}, err
	}
	newAccess, newJTI, newAccessExp, err := s.codec.IssueAccess(user.ID, sessionID, user.Role, now)
	if err != nil {
		return Issued{}, err
	}
	newHash := token.RefreshDigest(newRefresh)

	ok, err := s.store.UpdateRefreshHash(ctx, now, sessionID, prevHash, newHash, newJTI, newRefreshExp)
	if err != nil {
		return Issued{}, err
	}
	if !ok {
		return Issued{}, s.diagnoseRotateLoss(ctx, now, sessionID, prevHash)
	}

	return Issued{
		SessionID:    sessionID,
		AccessToken:  newAccess,
		AccessExp:    newAccessExp,
		RefreshToken: newRefresh,
		RefreshExp:   newRefreshExp,
	}, nil
}

// diagnoseRotateLoss explains a failed compare-and-swap. The benign causes
// (concurrent revoke or expiry) map to their usual errors; a hash mismatch
// on a live session is token reuse and triggers the incident response.
func (s *Service) diagnoseRotateLoss(ctx context.Context, now time.Time, sessionID, prevHash string) error {
	row, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if row.Revoked() {
		return ErrSessionRevoked
	}
	if row.Expired(now) {
		return ErrSessionExpired
	}
	if row.RefreshTokenHash == prevHash {
		// The swap should have applied; treat as a transient store fault.
		return ErrSessionNotFound
	}

	// Reuse: someone already rotated this token. Kill the session and cut
	// off whatever access token the winner currently holds.
	if _, _, err := s.store.MarkRevoked(ctx, now, sessionID, "refresh_reuse"); err != nil {
		return err
	}
	if err := s.denylist.Put(ctx, revocation.SessionKey(sessionID), s.denyTTL()); err != nil {
		return err
	}
	if row.AccessTokenID != "" {
		if err := s.denylist.Put(ctx, revocation.AccessKey(row.AccessTokenID), s.denyTTL()); err != nil {
			return err
		}
	}
	return ErrRefreshReuseDetected
}

// Revoke ends a session (sign-out or administrative revocation).
// It is idempotent: revoking an already-revoked or unknown session succeeds.
func (s *Service) Revoke(ctx context.Context, now time.Time, sessionID, reason string) error {
	row, changed, err := s.store.MarkRevoked(ctx, now, sessionID, reason)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := s.denylist.Put(ctx, revocation.SessionKey(sessionID), s.denyTTL()); err != nil {
		return err
	}
	if row.AccessTokenID != "" {
		if err := s.denylist.Put(ctx, revocation.AccessKey(row.AccessTokenID), s.denyTTL()); err != nil {
			return err
		}
	}
	return nil
}

// GetSession loads a session row by ID.
func (s *Service) GetSession(ctx context.Context, sessionID string) (Row, error) {
	return s.store.GetByID(ctx, sessionID)
}

// ListSessions returns the user's live sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, now time.Time, userID string) ([]Row, error) {
	return s.store.ListActiveForUser(ctx, now, userID)
}

// TouchSession updates last_used_at for a session (best-effort).
func (s *Service) TouchSession(ctx context.Context, now time.Time, sessionID string) error {
	return s.store.Touch(ctx, now, sessionID)
}

// PruneExpired deletes sessions that expired before cutoff.
func (s *Service) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.DeleteExpiredBefore(ctx, cutoff)
}
