package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biblio/cmd/identity"
	"biblio/cmd/internal/auth/guard"
	"biblio/cmd/internal/auth/session"
	"biblio/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteRoles declares the required roles for every guarded auth route.
// Routes not listed here are public.
var RouteRoles = guard.Table{
	"POST /v1/auth/signout":             guard.AnyAuthenticated,
	"GET /v1/me":                        guard.AnyAuthenticated,
	"GET /v1/sessions":                  guard.AnyAuthenticated,
	"DELETE /v1/sessions/{id}":          guard.AnyAuthenticated,
	"GET /v1/admin/users/{id}/sessions": guard.Roles(identity.RoleAdmin),
}

// Handler wires HTTP auth endpoints to the identity and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	// pool backs the audit log and sign-in throttling; nil disables both.
	pool *pgxpool.Pool

	directory identity.Store
	sessions  *session.Service
	passwords password.Config

	// dummyHash absorbs the verification cost for unknown accounts so
	// sign-in latency does not reveal whether an email exists.
	dummyHash string
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, pool *pgxpool.Pool, directory identity.Store, sessions *session.Service, passwords password.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if directory == nil {
		return nil, errors.New("api: nil identity store")
	}
	if sessions == nil {
		return nil, errors.New("api: nil session service")
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		pool:      pool,
		directory: directory,
		sessions:  sessions,
		passwords: passwords,
	}

	if hash, err := passwords.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto mux, guarding the ones RouteRoles names.
func (h *Handler) Register(mux *http.ServeMux, g *guard.Guard) {
	if h == nil || mux == nil {
		return
	}

	mux.HandleFunc("POST /v1/auth/signup", h.handleSignup)
	mux.HandleFunc("POST /v1/auth/signin", h.handleSignin)
	mux.HandleFunc("POST /v1/auth/refresh", h.handleRefresh)

	guarded := func(routeKey string, fn http.HandlerFunc) {
		mux.Handle(routeKey, g.Protect(RouteRoles.For(routeKey), fn))
	}
	guarded("POST /v1/auth/signout", h.handleSignout)
	guarded("GET /v1/me", h.handleMe)
	guarded("GET /v1/sessions", h.handleListSessions)
	guarded("DELETE /v1/sessions/{id}", h.handleDeleteSession)
	guarded("GET /v1/admin/users/{id}/sessions", h.handleAdminListSessions)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if !identity.IsValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid_email", "a valid email is required")
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, "invalid_password", "password does not meet the policy")
		default:
			h.log.Error("auth.signup.hash.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	res, err := h.directory.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         identity.RoleMember,
		Now:          now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid sign-up request")
		default:
			h.log.Error("auth.signup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditSignup(ctx, res.User.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	writeJSON(w, http.StatusCreated, signupResponse{User: toUserResponse(res.User)})
}

func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	identifier := identity.NormalizeEmail(email)

	// Throttling off the audit log, cheapest dimension first.
	if blocked, retryAfter, err := h.checkSigninIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.signin.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditSigninRateLimited(ctx, ip, ua, identifier, retryAfter)
		signinsTotal.WithLabelValues("rate_limited").Inc()
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter, err := h.checkSigninIdentifierThrottle(ctx, identifier, now); err != nil {
		h.log.Error("auth.signin.throttle_identifier.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditSigninRateLimited(ctx, ip, ua, identifier, retryAfter)
		signinsTotal.WithLabelValues("rate_limited").Inc()
		writeRateLimited(w, retryAfter)
		return
	}

	user, account, err := h.directory.FindByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.signin.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		// Timing resistance: absorb the verify cost for unknown accounts.
		if h.dummyHash != "" {
			_, _ = h.passwords.Verify(h.dummyHash, req.Password)
		}
		h.auditSigninFailed(ctx, nil, ip, ua, identifier, "not_found")
		signinsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	okPw, err := h.passwords.Verify(account.PasswordHash, req.Password)
	if err != nil || !okPw {
		h.auditSigninFailed(ctx, &user.ID, ip, ua, identifier, "bad_password")
		signinsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if user.Status != identity.StatusActive {
		h.auditSigninFailed(ctx, &user.ID, ip, ua, identifier, "account_suspended")
		signinsTotal.WithLabelValues("suspended").Inc()
		writeError(w, http.StatusForbidden, "account_suspended", "account is suspended")
		return
	}

	dev := session.DeviceContext{
		Platform:  session.NormalizePlatform(req.Platform),
		Label:     strings.TrimSpace(req.DeviceLabel),
		UserAgent: ua,
		IP:        ip,
	}

	issued, err := h.sessions.IssueSession(ctx, now, user, dev)
	if err != nil {
		h.log.Error("auth.signin.issue_session.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditSigninSuccess(ctx, &user.ID, issued.SessionID, ip, ua, identifier)
	signinsTotal.WithLabelValues("success").Inc()

	writeJSON(w, http.StatusOK, signinResponse{
		User:    toUserResponse(user),
		Session: toTokenPairResponse(issued),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	issued, err := h.sessions.Rotate(ctx, now, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRefreshReuseDetected):
			h.auditRefreshReuse(ctx, ip, ua)
			reuseIncidentsTotal.Inc()
			refreshesTotal.WithLabelValues("reuse_detected").Inc()
			// Deliberately indistinguishable from any other bad token.
			writeUnauthenticated(w)
		case errors.Is(err, session.ErrInvalidToken),
			errors.Is(err, session.ErrTokenExpired),
			errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrSessionExpired),
			errors.Is(err, session.ErrSessionRevoked):
			refreshesTotal.WithLabelValues("rejected").Inc()
			writeUnauthenticated(w)
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			refreshesTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditRefreshSuccess(ctx, issued.SessionID, ip, ua)
	refreshesTotal.WithLabelValues("success").Inc()

	writeJSON(w, http.StatusOK, refreshResponse{Session: toTokenPairResponse(issued)})
}

func (h *Handler) handleSignout(w http.ResponseWriter, r *http.Request) {
	claims, ok := guard.IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	if err := h.sessions.Revoke(ctx, now, claims.SessionID, "signout"); err != nil {
		h.log.Error("auth.signout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditSignout(ctx, claims.UserID, claims.SessionID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	revocationsTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := guard.IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	ctx := r.Context()
	user, err := h.directory.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeUnauthenticated(w)
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	// Best-effort activity marker so the session list reflects recent use.
	if err := h.sessions.TouchSession(ctx, time.Now().UTC(), claims.SessionID); err != nil {
		h.log.Warn("auth.me.touch.fail", "err", err, "session_id", claims.SessionID)
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}
