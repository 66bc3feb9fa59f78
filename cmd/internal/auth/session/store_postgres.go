package session

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (biblio.sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, sessionID, userID string, dev DeviceContext, refreshHash, accessTokenID string, expiresAt time.Time) error {
	var ip net.IP
	if dev.IP != nil {
		ip = dev.IP
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO biblio.sessions (
			id, user_id, refresh_token_hash, access_token_id,
			platform, label, user_agent, ip,
			created_at, last_used_at, expires_at, revoked_at, revocation_reason
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $9, $10, NULL, NULL
		)
	`, sessionID, userID, refreshHash, accessTokenID,
		string(dev.Platform), nullIfEmpty(dev.Label), nullIfEmpty(dev.UserAgent), ip,
		now, expiresAt)
	return err
}

// GetByID loads a session row by ID.
func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, `
		SELECT
			id, user_id, refresh_token_hash, access_token_id,
			platform, label, user_agent, ip,
			created_at, last_used_at, expires_at, revoked_at, revocation_reason
		FROM biblio.sessions
		WHERE id = $1
	`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

// UpdateRefreshHash performs the rotation compare-and-swap.
//
// The WHERE clause carries the whole contract: the previous hash must still
// be current and the session must be live. Concurrent rotations race on this
// single statement; Postgres serializes them and exactly one matches.
func (s *PostgresStore) UpdateRefreshHash(ctx context.Context, now time.Time, sessionID, prevHash, newHash, newAccessTokenID string, newExpiresAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE biblio.sessions
		SET refresh_token_hash = $1,
		    access_token_id    = $2,
		    last_used_at       = $3,
		    expires_at         = $4
		WHERE id = $5
		  AND refresh_token_hash = $6
		  AND revoked_at IS NULL
		  AND expires_at > $3
	`, newHash, newAccessTokenID, now, newExpiresAt, sessionID, prevHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRevoked revokes a session if not already revoked.
func (s *PostgresStore) MarkRevoked(ctx context.Context, now time.Time, sessionID, reason string) (Row, bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE biblio.sessions
		SET revoked_at = $1, revocation_reason = $2
		WHERE id = $3 AND revoked_at IS NULL
	`, now, nullIfEmpty(reason), sessionID)
	if err != nil {
		return Row{}, false, err
	}

	row, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return Row{}, false, err
	}
	return row, tag.RowsAffected() == 1, nil
}

// ListActiveForUser returns the user's live sessions, newest first.
func (s *PostgresStore) ListActiveForUser(ctx context.Context, now time.Time, userID string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, user_id, refresh_token_hash, access_token_id,
			platform, label, user_agent, ip,
			created_at, last_used_at, expires_at, revoked_at, revocation_reason
		FROM biblio.sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteExpiredBefore removes long-expired sessions.
func (s *PostgresStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM biblio.sessions
		WHERE expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Touch updates last_used_at for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE biblio.sessions
		SET last_used_at = $1
		WHERE id = $2
	`, now, sessionID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner) (Row, error) {
	var (
		row       Row
		label     *string
		userAgent *string
	)
	err := sc.Scan(
		&row.ID,
		&row.UserID,
		&row.RefreshTokenHash,
		&row.AccessTokenID,
		&row.Platform,
		&label,
		&userAgent,
		&row.IP,
		&row.CreatedAt,
		&row.LastUsedAt,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.RevocationReason,
	)
	if err != nil {
		return Row{}, err
	}
	if label != nil {
		row.Label = *label
	}
	if userAgent != nil {
		row.UserAgent = *userAgent
	}
	return row, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
