package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beanbrew/queueboard/internal/domain"
)

type postgresSessionRepository struct {
	pool          *pgxpool.Pool
	identityKey   string
	credentialKey string
}

// NewPostgresSessionRepository stores the entries as rows of client_session.
func NewPostgresSessionRepository(pool *pgxpool.Pool, prefix string) SessionRepository {
	return &postgresSessionRepository{
		pool:          pool,
		identityKey:   prefix + KeyIdentity,
		credentialKey: prefix + KeyCredential,
	}
}

func (r *postgresSessionRepository) Load(ctx context.Context) (PersistedSession, error) {
	const query = `SELECT key, value FROM client_session WHERE key = ANY($1)`

	rows, err := r.pool.Query(ctx, query, []string{r.identityKey, r.credentialKey})
	if err != nil {
		return PersistedSession{}, fmt.Errorf("postgres load session: %w", err)
	}
	defer rows.Close()

	out := PersistedSession{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return PersistedSession{}, fmt.Errorf("postgres scan session: %w", err)
		}
		switch key {
		case r.identityKey:
			out.Identity = decodeIdentity(value)
		case r.credentialKey:
			out.Credential = value
		}
	}
	if err := rows.Err(); err != nil {
		return PersistedSession{}, fmt.Errorf("postgres load session: %w", err)
	}
	return out, nil
}

func (r *postgresSessionRepository) Save(ctx context.Context, identity domain.Identity, credential string) error {
	const upsert = `
        INSERT INTO client_session (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	encoded, err := encodeIdentity(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsert, r.identityKey, encoded); err != nil {
			return fmt.Errorf("postgres save identity: %w", err)
		}
		if _, err := tx.Exec(ctx, upsert, r.credentialKey, credential); err != nil {
			return fmt.Errorf("postgres save credential: %w", err)
		}
		return nil
	})
}

func (r *postgresSessionRepository) Clear(ctx context.Context) error {
	const query = `DELETE FROM client_session WHERE key = ANY($1)`

	if _, err := r.pool.Exec(ctx, query, []string{r.identityKey, r.credentialKey}); err != nil {
		return fmt.Errorf("postgres clear session: %w", err)
	}
	return nil
}
