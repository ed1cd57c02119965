package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beanbrew/queueboard/internal/domain"
)

type fileSessionRepository struct {
	path string
}

// NewFileSessionRepository keeps both entries in one JSON file at path.
func NewFileSessionRepository(path string) SessionRepository {
	return &fileSessionRepository{path: path}
}

func (r *fileSessionRepository) Load(_ context.Context) (PersistedSession, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return PersistedSession{}, nil
	}
	if err != nil {
		return PersistedSession{}, fmt.Errorf("read session file: %w", err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return PersistedSession{}, fmt.Errorf("parse session file: %w", err)
	}
	return PersistedSession{
		Identity:   decodeIdentity(entries[KeyIdentity]),
		Credential: entries[KeyCredential],
	}, nil
}

// Save replaces the file via rename so a crash never leaves one entry without the other.
func (r *fileSessionRepository) Save(_ context.Context, identity domain.Identity, credential string) error {
	encoded, err := encodeIdentity(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	raw, err := json.Marshal(map[string]string{
		KeyIdentity:   encoded,
		KeyCredential: credential,
	})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (r *fileSessionRepository) Clear(_ context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
