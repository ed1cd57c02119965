package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a server-issued token without verifying it.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// InspectToken reads claims from the token returned by the login endpoint. The
// client holds no signing key, so the signature is not checked and the result is
// informational only. Opaque tokens report ok=false.
func InspectToken(token string) (TokenInfo, bool) {
	if token == "" {
		return TokenInfo{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, false
	}
	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info, true
}
