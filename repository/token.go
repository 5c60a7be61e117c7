package repository

import (
	"context"
	"time"
)

// TokenDenylist records refresh tokens revoked before their natural expiry
// (logout). Entries only need to live as long as the token itself.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
