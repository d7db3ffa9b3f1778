package token

import (
	"context"
	"sync"
	"time"
)

// RevokedTokenCache is the jti deny-list. Entries only need to live until the
// token they name would have expired anyway.
type RevokedTokenCache interface {
	// Add deny-lists jti until exp. It reports false when jti was already listed.
	Add(ctx context.Context, jti string, exp time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Cleanup(ctx context.Context) // Remove expired entries
}

// InMemoryRevokedTokenCache is a simple in-memory implementation
type InMemoryRevokedTokenCache struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowFunc func() time.Time
}

func NewInMemoryRevokedTokenCache() *InMemoryRevokedTokenCache {
	return &InMemoryRevokedTokenCache{
		revoked: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (c *InMemoryRevokedTokenCache) Add(_ context.Context, jti string, exp time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.revoked[jti]; exists {
		return false, nil
	}
	c.revoked[jti] = exp
	return true, nil
}

func (c *InMemoryRevokedTokenCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists, nil
}

func (c *InMemoryRevokedTokenCache) Cleanup(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}

func (c *InMemoryRevokedTokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.revoked)
}
