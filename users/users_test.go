package users_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-entitlement-auth/users/fakerepo"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Passw0rdOK"))
	require.ErrorContains(t, users.ValidatePasswordStrength("Sh0rt"), "at least 8")
	require.ErrorContains(t, users.ValidatePasswordStrength("alllower1"), "uppercase")
	require.ErrorContains(t, users.ValidatePasswordStrength("ALLUPPER1"), "lowercase")
	require.ErrorContains(t, users.ValidatePasswordStrength("NoNumbers"), "number")
}

func TestHashPassword(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123", hash)
	require.True(t, users.CheckPasswordHash("Secret123", hash))
	require.False(t, users.CheckPasswordHash("secret123", hash))
}

func TestRandomPlaceholderPassword(t *testing.T) {
	a, err := users.RandomPlaceholderPassword()
	require.NoError(t, err)
	b, err := users.RandomPlaceholderPassword()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.False(t, users.CheckPasswordHash("", a))
}

func TestVerifyUserPassword(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	user := &users.User{ID: "u1", PasswordHash: hash}

	require.True(t, users.VerifyUserPassword(user, "Secret123"))
	require.False(t, users.VerifyUserPassword(user, "Wrong1234"))
	require.False(t, users.VerifyUserPassword(nil, "Secret123"))

	// a missing account still pays for a bcrypt comparison
	fastest := func(fn func()) time.Duration {
		best := time.Duration(-1)
		for i := 0; i < 3; i++ {
			start := time.Now()
			fn()
			if d := time.Since(start); best < 0 || d < best {
				best = d
			}
		}
		return best
	}
	known := fastest(func() { users.VerifyUserPassword(user, "Wrong1234") })
	missing := fastest(func() { users.VerifyUserPassword(nil, "Wrong1234") })
	require.GreaterOrEqual(t, missing, known/4)
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "jane@example.com", users.NormalizeEmail("  Jane@Example.COM "))
}

func TestResetTokens(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rt := users.NewResetTokens(time.Hour, func() time.Time { return now })

	token, err := rt.Issue("user-1")
	require.NoError(t, err)

	userID, ok := rt.Consume(token)
	require.True(t, ok)
	require.Equal(t, "user-1", userID)

	_, ok = rt.Consume(token)
	require.False(t, ok, "reset tokens are single use")

	expired, err := rt.Issue("user-2")
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, ok = rt.Consume(expired)
	require.False(t, ok)

	_, err = rt.Issue("user-3")
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	require.Equal(t, 1, rt.Sweep())
}

func TestFakeUserRepo_UniqueKeys(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	require.NoError(t, repo.Create(ctx, &users.User{Email: "a@example.com", ExternalID: "ext-1"}))

	err := repo.Create(ctx, &users.User{Email: "a@example.com"})
	require.ErrorIs(t, err, apperrors.ErrDuplicate)

	err = repo.Create(ctx, &users.User{Email: "b@example.com", ExternalID: "ext-1"})
	require.ErrorIs(t, err, apperrors.ErrDuplicate)

	u, err := repo.GetByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", u.Email)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
