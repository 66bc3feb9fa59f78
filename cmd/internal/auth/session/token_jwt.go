package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"biblio/cmd/identity"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessClaims is the minimal identity envelope propagated across HTTP.
type AccessClaims struct {
	UserID    string
	SessionID string
	Role      identity.Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// signedClaims is the wire shape shared by access and refresh tokens.
// Access tokens carry sub (user id) and role; refresh tokens carry only sid.
type signedClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	Role      string `json:"role,omitempty"`
}

// TokenCodec issues and verifies Biblio's signed tokens (JWT HS256).
//
// Verification is deterministic in the supplied now: clock skew tolerates
// iat/nbf from peers with drifting clocks but never extends exp, and the
// exp boundary itself is exclusive.
type TokenCodec struct {
	issuer    string
	key       []byte
	accessTTL time.Duration
	clockSkew time.Duration
}

// NewTokenCodec builds a TokenCodec from cfg.
func NewTokenCodec(cfg Config) (*TokenCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenCodec{
		issuer:    cfg.Issuer,
		key:       cfg.SigningKey,
		accessTTL: cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
	}, nil
}

// IssueAccess mints a short-lived access token with a fresh jti.
func (c *TokenCodec) IssueAccess(userID, sessionID string, role identity.Role, now time.Time) (token, jti string, exp time.Time, err error) {
	jti = uuid.NewString()
	exp = now.Add(c.accessTTL)

	claims := signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID: sessionID,
		TokenType: tokenTypeAccess,
		Role:      string(role),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, exp, nil
}

// VerifyAccess verifies an access token offline and returns its claims.
func (c *TokenCodec) VerifyAccess(token string, now time.Time) (AccessClaims, error) {
	claims, err := c.parse(token, now)
	if err != nil {
		return AccessClaims{}, err
	}
	if claims.TokenType != tokenTypeAccess {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" || claims.ID == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Role:      identity.Role(claims.Role),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Issuer:    claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// IssueRefresh mints a refresh token bound to sessionID, valid until exp.
func (c *TokenCodec) IssueRefresh(sessionID string, now, exp time.Time) (string, error) {
	claims := signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID: sessionID,
		TokenType: tokenTypeRefresh,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// ParseRefresh verifies a refresh token and returns its session ID.
func (c *TokenCodec) ParseRefresh(token string, now time.Time) (string, error) {
	claims, err := c.parse(token, now)
	if err != nil {
		return "", err
	}
	if claims.TokenType != tokenTypeRefresh || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

func (c *TokenCodec) parse(token string, now time.Time) (*signedClaims, error) {
	claims := &signedClaims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	// Strict exclusive expiry: leeway above tolerates skewed iat/nbf but
	// must not stretch the token's lifetime.
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(now) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
