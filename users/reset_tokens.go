package users

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

type resetToken struct {
	userID    string
	expiresAt time.Time
}

// ResetTokens is the time-bounded password reset token map.
// Tokens are single use and expire after ttl; Sweep drops stale entries.
type ResetTokens struct {
	mu      sync.Mutex
	tokens  map[string]resetToken
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewResetTokens(ttl time.Duration, now func() time.Time) *ResetTokens {
	if now == nil {
		now = time.Now
	}
	return &ResetTokens{
		tokens:  make(map[string]resetToken),
		ttl:     ttl,
		nowFunc: now,
	}
}

// Issue creates a reset token for the user
func (r *ResetTokens) Issue(userID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = resetToken{userID: userID, expiresAt: r.nowFunc().Add(r.ttl)}
	return token, nil
}

// Consume returns the user the token was issued for and removes it
func (r *ResetTokens) Consume(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tokens[token]
	if !ok {
		return "", false
	}
	delete(r.tokens, token)
	if r.nowFunc().After(entry.expiresAt) {
		return "", false
	}
	return entry.userID, true
}

// Sweep removes expired tokens and returns how many were dropped
func (r *ResetTokens) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	removed := 0
	for token, entry := range r.tokens {
		if now.After(entry.expiresAt) {
			delete(r.tokens, token)
			removed++
		}
	}
	return removed
}
