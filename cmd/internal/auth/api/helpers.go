package api

import (
	"net"
	"net/http"
	"strings"

	"biblio/cmd/identity"
	"biblio/cmd/internal/auth/session"
)

// clientIP resolves the request's client IP. X-Forwarded-For is honored
// only when the deployment declares a trusted proxy in front of us.
func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(strings.TrimSpace(host))
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

func toTokenPairResponse(issued session.Issued) tokenPairResponse {
	return tokenPairResponse{
		SessionID:        issued.SessionID,
		AccessToken:      issued.AccessToken,
		AccessExpiresAt:  issued.AccessExp,
		RefreshToken:     issued.RefreshToken,
		RefreshExpiresAt: issued.RefreshExp,
	}
}

func toSessionInfo(row session.Row, currentSessionID string) sessionInfo {
	info := sessionInfo{
		ID:         row.ID,
		Platform:   string(row.Platform),
		Label:      row.Label,
		UserAgent:  row.UserAgent,
		CreatedAt:  row.CreatedAt,
		LastUsedAt: row.LastUsedAt,
		ExpiresAt:  row.ExpiresAt,
		Current:    row.ID == currentSessionID,
	}
	if row.IP != nil {
		info.IP = row.IP.String()
	}
	return info
}
