package guard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biblio/cmd/identity"
	"biblio/cmd/internal/auth/session"
)

// defaultCheckTimeout bounds the denylist and directory round trips so a
// slow backend degrades into a rejection instead of a hung request.
const defaultCheckTimeout = 3 * time.Second

// TokenVerifier validates an access token (signature + denylist).
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string, now time.Time) (session.AccessClaims, error)
}

// Guard is the HTTP authentication/authorization middleware.
type Guard struct {
	verifier  TokenVerifier
	directory session.Directory
	logger    *slog.Logger
	timeout   time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithCheckTimeout overrides the per-request verification timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithClock overrides the guard's clock.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// New constructs a Guard.
func New(verifier TokenVerifier, directory session.Directory, logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{
		verifier:  verifier,
		directory: directory,
		logger:    logger,
		timeout:   defaultCheckTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Protect wraps next with authentication and, when required is non-empty,
// a current-role check against the directory.
//
// Status mapping: missing/invalid/expired/revoked credentials are 401 with a
// uniform body; an authenticated caller whose current role is outside
// required gets 403. Backend failures reject with 401 as well; the guard
// never admits a request it could not fully check.
func (g *Guard) Protect(required RoleSet, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			unauthenticated(w)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
		defer cancel()

		now := g.now()

		claims, err := g.verifier.Verify(ctx, token, now)
		if err != nil {
			if !isCredentialError(err) {
				g.logger.Error("token verification backend failure", "err", err)
			}
			unauthenticated(w)
			return
		}

		if len(required) > 0 {
			user, err := g.directory.FindUserByID(ctx, claims.UserID)
			if err != nil {
				if !identity.IsNotFound(err) {
					g.logger.Error("role re-check failure", "err", err, "user_id", claims.UserID)
				}
				unauthenticated(w)
				return
			}
			if user.Status != identity.StatusActive {
				unauthenticated(w)
				return
			}
			if !required.Contains(user.Role) {
				forbidden(w)
				return
			}
			// Propagate the authoritative role, not the token snapshot.
			claims.Role = user.Role
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims)))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func isCredentialError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrTokenExpired),
		errors.Is(err, session.ErrSessionRevoked),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrSessionNotFound):
		return true
	}
	return false
}

// Error envelope matching the auth API's shape.
type guardError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type guardErrorResponse struct {
	Error guardError `json:"error"`
}

func writeGuardError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(guardErrorResponse{Error: guardError{Code: code, Message: msg}})
}

// unauthenticated writes the uniform 401. The body never distinguishes
// missing, malformed, expired, or revoked credentials.
func unauthenticated(w http.ResponseWriter) {
	writeGuardError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
}

func forbidden(w http.ResponseWriter) {
	writeGuardError(w, http.StatusForbidden, "forbidden", "insufficient role")
}
