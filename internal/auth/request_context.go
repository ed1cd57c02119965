package auth

import "net/http"

// RequestContext carries the credential of the current session to every
// outbound call. It is handed out by the session manager and never mutated.
type RequestContext struct {
	Username   string
	Credential string
}

// Authenticated reports whether the context carries a credential.
func (rc RequestContext) Authenticated() bool {
	return rc.Credential != ""
}

// Apply sets the Authorization header on req when a credential is present.
func (rc RequestContext) Apply(req *http.Request) {
	if !rc.Authenticated() {
		return
	}
	req.Header.Set("Authorization", HeaderValue(rc.Credential))
}
