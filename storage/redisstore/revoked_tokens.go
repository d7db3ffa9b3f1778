package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/token"
	"github.com/redis/go-redis/v9"
)

var _ token.RevokedTokenCache = (*RevokedTokenCache)(nil)

// minRevocationTTL keeps a key alive briefly even when the token is about to expire
const minRevocationTTL = time.Second

// RevokedTokenCache stores deny-listed jtis with a TTL equal to the token's
// remaining lifetime, so Redis does the cleanup
type RevokedTokenCache struct {
	client  redis.UniversalClient
	nowFunc func() time.Time
}

func NewRevokedTokenCache(client redis.UniversalClient) *RevokedTokenCache {
	return &RevokedTokenCache{client: client, nowFunc: time.Now}
}

func (c *RevokedTokenCache) Add(ctx context.Context, jti string, exp time.Time) (bool, error) {
	ttl := exp.Sub(c.nowFunc())
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	added, err := c.client.SetNX(ctx, revokedKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revoke %s: %w", jti, err)
	}
	return added, nil
}

func (c *RevokedTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", jti, err)
	}
	return n > 0, nil
}

// Cleanup is a no-op, keys expire on their own
func (c *RevokedTokenCache) Cleanup(context.Context) {}
