package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/beanbrew/queueboard/internal/domain"
)

type redisSessionRepository struct {
	client        redis.UniversalClient
	identityKey   string
	credentialKey string
}

// NewRedisSessionRepository stores the two entries as plain string keys. The
// optional prefix goes inside a shared hash tag, so on a cluster both keys
// live in one slot and MGET, DEL and MULTI stay single-node.
func NewRedisSessionRepository(client redis.UniversalClient, prefix string) SessionRepository {
	identityKey, credentialKey := redisSessionKeys(prefix)
	return &redisSessionRepository{
		client:        client,
		identityKey:   identityKey,
		credentialKey: credentialKey,
	}
}

func redisSessionKeys(prefix string) (identity, credential string) {
	tag := "{" + strings.NewReplacer("{", "", "}", "").Replace(prefix) + "queueboard}"
	return tag + KeyIdentity, tag + KeyCredential
}

func (r *redisSessionRepository) Load(ctx context.Context) (PersistedSession, error) {
	vals, err := r.client.MGet(ctx, r.identityKey, r.credentialKey).Result()
	if err != nil {
		return PersistedSession{}, fmt.Errorf("redis load session: %w", err)
	}
	out := PersistedSession{}
	if s, ok := vals[0].(string); ok {
		out.Identity = decodeIdentity(s)
	}
	if s, ok := vals[1].(string); ok {
		out.Credential = s
	}
	return out, nil
}

func (r *redisSessionRepository) Save(ctx context.Context, identity domain.Identity, credential string) error {
	encoded, err := encodeIdentity(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.identityKey, encoded, 0)
		pipe.Set(ctx, r.credentialKey, credential, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.identityKey, r.credentialKey).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}
