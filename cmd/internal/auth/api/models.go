package api

import "time"

type signupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type signinRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Platform    string `json:"platform"`
	DeviceLabel string `json:"device_label"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type tokenPairResponse struct {
	SessionID        string    `json:"session_id"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type signupResponse struct {
	User userResponse `json:"user"`
}

type signinResponse struct {
	User    userResponse      `json:"user"`
	Session tokenPairResponse `json:"session"`
}

type refreshResponse struct {
	Session tokenPairResponse `json:"session"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

type sessionInfo struct {
	ID         string     `json:"id"`
	Platform   string     `json:"platform"`
	Label      string     `json:"label,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IP         string     `json:"ip,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Current    bool       `json:"current"`
}

type sessionListResponse struct {
	Sessions []sessionInfo `json:"sessions"`
}
