package api

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"
)

func (h *Handler) auditSigninFailed(ctx context.Context, userID *string, ip net.IP, ua, identifier, reason string) {
	h.insertAudit(ctx, "auth.signin.failed", userID, nil, ip, ua, map[string]any{
		"identifier": identifier,
		"reason":     reason,
	})
}

func (h *Handler) auditSigninSuccess(ctx context.Context, userID *string, sessionID string, ip net.IP, ua, identifier string) {
	h.insertAudit(ctx, "auth.signin.success", userID, &sessionID, ip, ua, map[string]any{
		"identifier": identifier,
	})
}

func (h *Handler) auditSigninRateLimited(ctx context.Context, ip net.IP, ua, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.signin.rate_limited", nil, nil, ip, ua, map[string]any{
		"identifier":    identifier,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditSignup(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.signup", &userID, nil, ip, ua, nil)
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, sessionID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.refresh.success", nil, &sessionID, ip, ua, nil)
}

func (h *Handler) auditRefreshReuse(ctx context.Context, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.refresh.reuse_detected", nil, nil, ip, ua, nil)
}

func (h *Handler) auditSignout(ctx context.Context, userID, sessionID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.signout", &userID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditSessionRevoked(ctx context.Context, actorID, sessionID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.session.revoked", &actorID, &sessionID, ip, ua, nil)
}

// insertAudit writes one audit row. Auditing is best-effort: failures are
// logged, never surfaced to the client. A nil pool disables auditing.
func (h *Handler) insertAudit(ctx context.Context, action string, userID, sessionID *string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.pool == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO biblio.audit_log (
			user_id, session_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, userID, sessionID, action, ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
