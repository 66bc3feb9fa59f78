package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Sign-in throttling counts recent failures out of the audit log. With a
// nil pool (tests, degraded mode) throttling is disabled.

// throttleVerdict is the pure decision: blocked once the observed failure
// count reaches limit, with retryAfter advertised to the client. A
// non-positive limit disables the dimension.
func throttleVerdict(failures, limit int, retryAfter time.Duration) (bool, time.Duration) {
	if limit <= 0 || failures < limit {
		return false, 0
	}
	return true, retryAfter
}

func (h *Handler) checkSigninIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if h.pool == nil || ip == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	n, err := h.countSigninFailures(ctx, `ip = $1`, ip.String(), now.Add(-h.cfg.LoginIPWindow))
	if err != nil {
		return false, 0, err
	}
	blocked, retryAfter := throttleVerdict(n, h.cfg.LoginIPMax, h.cfg.LoginIPWindow)
	return blocked, retryAfter, nil
}

func (h *Handler) checkSigninIdentifierThrottle(ctx context.Context, identifier string, now time.Time) (bool, time.Duration, error) {
	if h.pool == nil || identifier == "" || h.cfg.LoginIdentMax <= 0 {
		return false, 0, nil
	}
	n, err := h.countSigninFailures(ctx, `meta->>'identifier' = $1`, identifier, now.Add(-h.cfg.LoginIdentWindow))
	if err != nil {
		return false, 0, err
	}
	blocked, retryAfter := throttleVerdict(n, h.cfg.LoginIdentMax, h.cfg.LoginIdentLockout)
	return blocked, retryAfter, nil
}

func (h *Handler) countSigninFailures(ctx context.Context, match string, value any, since time.Time) (int, error) {
	var n int
	err := h.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM biblio.audit_log
		WHERE action = 'auth.signin.failed'
		  AND `+match+`
		  AND created_at >= $2
	`, value, since).Scan(&n)
	return n, err
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
