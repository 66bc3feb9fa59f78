package api

import (
	"errors"
	"net/http"
	"time"

	"biblio/cmd/identity"
	"biblio/cmd/internal/auth/guard"
	"biblio/cmd/internal/auth/session"
)

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := guard.IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	rows, err := h.sessions.ListSessions(r.Context(), time.Now().UTC(), claims.UserID)
	if err != nil {
		h.log.Error("auth.sessions.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toSessionList(rows, claims.SessionID))
}

// handleDeleteSession revokes one of the caller's sessions, or any session
// when the caller is currently an admin. Non-admins get the same 404 for
// foreign and unknown session IDs so they cannot probe for existence.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := guard.IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	sessionID := r.PathValue("id")

	row, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		h.log.Error("auth.sessions.delete.lookup.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if row.UserID != claims.UserID {
		// Admin status is re-read, never trusted from the token.
		actor, err := h.directory.FindUserByID(ctx, claims.UserID)
		if err != nil || actor.Status != identity.StatusActive || actor.Role != identity.RoleAdmin {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
	}

	if err := h.sessions.Revoke(ctx, now, sessionID, "revoked_by_user"); err != nil {
		h.log.Error("auth.sessions.delete.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditSessionRevoked(ctx, claims.UserID, sessionID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	revocationsTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminListSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := guard.IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	userID := r.PathValue("id")
	rows, err := h.sessions.ListSessions(r.Context(), time.Now().UTC(), userID)
	if err != nil {
		h.log.Error("auth.admin.sessions.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toSessionList(rows, claims.SessionID))
}

func toSessionList(rows []session.Row, currentSessionID string) sessionListResponse {
	out := sessionListResponse{Sessions: make([]sessionInfo, 0, len(rows))}
	for _, row := range rows {
		out.Sessions = append(out.Sessions, toSessionInfo(row, currentSessionID))
	}
	return out
}
