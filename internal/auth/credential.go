package auth

import (
	"encoding/base64"
	"strings"
)

// basicScheme is the authorization scheme the coffee API expects.
const basicScheme = "Basic"

// DeriveCredential turns a username and password into the opaque credential
// stored with the session. The same inputs always yield the same value.
func DeriveCredential(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// HeaderValue renders a credential as an Authorization header value.
func HeaderValue(credential string) string {
	return basicScheme + " " + credential
}

// UsernameFromCredential recovers the username half of a credential. It
// returns false for values that were not produced by DeriveCredential.
func UsernameFromCredential(credential string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return "", false
	}
	username, _, ok := strings.Cut(string(raw), ":")
	if !ok || username == "" {
		return "", false
	}
	return username, true
}
