package users

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents a user's role in the course application
type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAdmin RoleType = "admin"
)

type User struct {
	ID           string    `json:"id"`                   // Unique identifier for the user
	Email        string    `json:"email"`                // Unique, stored lower-cased
	PasswordHash string    `json:"-"`                    // Hashed version of the user's password - never serialize
	FirstName    string    `json:"firstName,omitempty"`  // First name of the user
	LastName     string    `json:"lastName,omitempty"`   // Last name of the user
	Role         RoleType  `json:"role"`                 // Application role
	ExternalID   string    `json:"externalId,omitempty"` // SoloSuccess user id, stable across email changes
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// dummyPasswordHash stands in for a missing account's hash
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("no-such-account"), bcrypt.DefaultCost)
	return hash
})

// VerifyUserPassword checks password against the user's hash. A nil user is
// compared against a dummy hash so a missing account costs the same bcrypt work
// as a wrong password.
func VerifyUserPassword(user *User, password string) bool {
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
		return false
	}
	return CheckPasswordHash(password, user.PasswordHash)
}

// RandomPlaceholderPassword returns the hash of a random secret nobody knows.
// SSO-provisioned users get one so password login stays impossible until a reset.
func RandomPlaceholderPassword() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("placeholder password: %w", err)
	}
	// bcrypt only reads the first 72 bytes; 64 base64 chars fit
	return HashPassword(base64.RawURLEncoding.EncodeToString(b))
}
