package sso

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Assertion is the signed login payload SoloSuccess hands to its users
type Assertion struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Tier      string `json:"tier"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

func (a *Assertion) complete() bool {
	return strings.TrimSpace(a.UserID) != "" &&
		strings.TrimSpace(a.Email) != "" &&
		strings.TrimSpace(a.Tier) != ""
}
