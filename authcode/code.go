package authcode

import (
	"time"
)

const (
	codeGenerationLength = 32
	defaultCodeTTL       = 10 * time.Minute
)

// Code is a single-use authorization code bound to a user, client and redirect URI
type Code struct {
	Code        string    `json:"code"`
	UserID      string    `json:"userId"`
	ClientID    string    `json:"clientId"`
	RedirectURI string    `json:"redirectUri"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Consumed    bool      `json:"consumed"`
}

func (c *Code) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
