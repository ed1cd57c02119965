package repository

import (
	"context"
	"encoding/json"

	"github.com/beanbrew/queueboard/internal/domain"
)

// Durable entry names. Both are written and removed together.
const (
	KeyIdentity   = "coffee_user"
	KeyCredential = "coffee_auth"
)

// PersistedSession is what a store holds. Either half may be missing.
type PersistedSession struct {
	Identity   *domain.Identity
	Credential string
}

// Complete reports whether both halves are present.
func (p PersistedSession) Complete() bool {
	return p.Identity != nil && p.Identity.Username != "" && p.Credential != ""
}

// SessionRepository persists the session across restarts.
type SessionRepository interface {
	Load(ctx context.Context) (PersistedSession, error)
	Save(ctx context.Context, identity domain.Identity, credential string) error
	Clear(ctx context.Context) error
}

func encodeIdentity(identity domain.Identity) (string, error) {
	raw, err := json.Marshal(identity)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeIdentity returns nil for corrupt or empty entries.
func decodeIdentity(raw string) *domain.Identity {
	if raw == "" {
		return nil
	}
	var identity domain.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil || identity.Username == "" {
		return nil
	}
	return &identity
}
