package token

import (
	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims carried by every token this service issues. Access and refresh
// tokens are told apart by TokenType as well as by their signing secret.
type Claims struct {
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ClientID  string    `json:"clientId,omitempty"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity returns the caller-supplied part of the claims, ready to be
// stamped into a fresh token
func (c *Claims) Identity() Claims {
	return Claims{
		UserID:   c.UserID,
		Email:    c.Email,
		Role:     c.Role,
		ClientID: c.ClientID,
	}
}

// TokenPair is the token endpoint response body
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
