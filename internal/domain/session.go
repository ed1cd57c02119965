package domain

import "time"

// Role is the server-assigned role of the logged-in account.
type Role string

const (
	RoleUser    Role = "USER"
	RoleBarista Role = "BARISTA"
	RoleAdmin   Role = "ADMIN"
)

// Identity is the persisted half of a session that names the user.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// SessionState is the SessionManager lifecycle.
type SessionState int

const (
	SessionUnauthenticated SessionState = iota
	SessionAuthenticating
	SessionAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionAuthenticating:
		return "authenticating"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session pairs an identity with the credential attached to every order call.
// Both halves are always present together.
type Session struct {
	Identity   Identity
	Credential string
	// TokenExpiresAt is read from the login response token when it is a JWT.
	TokenExpiresAt *time.Time
}
