package dto

import (
	"time"

	"github.com/beanbrew/queueboard/internal/domain"
)

// LoginRequest payload for POST /api/session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest payload for POST /api/session/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// SessionResponse describes the current session. The credential is never echoed.
type SessionResponse struct {
	State          string      `json:"state"`
	Username       string      `json:"username,omitempty"`
	Role           domain.Role `json:"role,omitempty"`
	TokenExpiresAt *time.Time  `json:"token_expires_at,omitempty"`
}

// NewSessionResponse builds the response for state and an optional session.
func NewSessionResponse(state domain.SessionState, session *domain.Session) SessionResponse {
	resp := SessionResponse{State: state.String()}
	if session != nil {
		resp.Username = session.Identity.Username
		resp.Role = session.Identity.Role
		resp.TokenExpiresAt = session.TokenExpiresAt
	}
	return resp
}
