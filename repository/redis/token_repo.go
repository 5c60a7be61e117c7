package redis

import (
	"context"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/taskforge/backend/repository"
)

type tokenDenylist struct {
	client *redislib.Client
	prefix string
}

// NewTokenDenylist creates a Redis-backed denylist for revoked refresh
// tokens. Keys expire with the token itself, so the set never needs a
// separate cleanup pass.
func NewTokenDenylist(client *redislib.Client) repository.TokenDenylist {
	return &tokenDenylist{
		client: client,
		prefix: "revoked:",
	}
}

func (r *tokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err()
}

func (r *tokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
