package authcode_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/authcode"
	fakecoderepo "github.com/jrsteele09/go-entitlement-auth/authcode/fakerepo"
	"github.com/jrsteele09/go-entitlement-auth/clients"
	fakeclientrepo "github.com/jrsteele09/go-entitlement-auth/clients/fakerepo"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUserID      = "user-1"
	testRedirectURI = "https://app.example.com/callback"
)

type testFixture struct {
	issuer *authcode.Issuer
	repo   *fakecoderepo.FakeCodeRepo
	client *clients.CreatedClient
	store  *clients.Store
	now    time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	f := &testFixture{
		repo: fakecoderepo.NewFakeCodeRepo(),
		now:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.store = clients.NewStore(fakeclientrepo.NewFakeClientRepo(), clients.WithLogger(zerolog.Nop()))

	client, err := f.store.CreateClient(ctx, "SoloSuccess", testRedirectURI, "", "")
	require.NoError(t, err)
	f.client = client

	issuer, err := authcode.NewIssuer(f.repo, f.store,
		authcode.WithLogger(zerolog.Nop()),
		authcode.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.issuer = issuer
	return f
}

func TestNewIssuer_RequiresDependencies(t *testing.T) {
	_, err := authcode.NewIssuer(nil, nil)
	require.Error(t, err)
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a code for the registered redirect", func(t *testing.T) {
		f := setupTestFixture(t)
		code, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(code), 43)
		require.Equal(t, 1, f.repo.Len())
	})

	t.Run("codes are unique", func(t *testing.T) {
		f := setupTestFixture(t)
		a, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)
		b, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("unknown client", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.issuer.Issue(ctx, testUserID, "client_missing", testRedirectURI)
		require.ErrorIs(t, err, apperrors.ErrInvalidClient)
	})

	t.Run("redirect must match exactly", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI+"/")
		require.ErrorIs(t, err, apperrors.ErrInvalidRedirectURI)
		require.Equal(t, 0, f.repo.Len())
	})

	t.Run("inactive client", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.store.DeactivateClient(ctx, f.client.ID))
		_, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.ErrorIs(t, err, apperrors.ErrInvalidClient)
	})
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("success then replay fails", func(t *testing.T) {
		f := setupTestFixture(t)
		code, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)

		userID, err := f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, testRedirectURI)
		require.NoError(t, err)
		require.Equal(t, testUserID, userID)

		_, err = f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, testRedirectURI)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})

	t.Run("failed exchange still burns the code", func(t *testing.T) {
		f := setupTestFixture(t)
		code, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)

		_, err = f.issuer.Exchange(ctx, code, f.client.ID, "wrong-secret", testRedirectURI)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)

		_, err = f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, testRedirectURI)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})

	t.Run("every failure is the same error", func(t *testing.T) {
		f := setupTestFixture(t)
		other, err := f.store.CreateClient(ctx, "Other", testRedirectURI, "", "")
		require.NoError(t, err)

		cases := map[string]func(code string) error{
			"unknown code": func(string) error {
				_, err := f.issuer.Exchange(ctx, "nope", f.client.ID, f.client.Secret, testRedirectURI)
				return err
			},
			"wrong client": func(code string) error {
				_, err := f.issuer.Exchange(ctx, code, other.ID, other.Secret, testRedirectURI)
				return err
			},
			"redirect mismatch": func(code string) error {
				_, err := f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, "https://evil.example.com/cb")
				return err
			},
			"missing redirect": func(code string) error {
				_, err := f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, "")
				return err
			},
		}
		for name, exchange := range cases {
			t.Run(name, func(t *testing.T) {
				code, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
				require.NoError(t, err)
				err = exchange(code)
				require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
				require.Equal(t, apperrors.ErrInvalidGrant.Error(), err.Error())
			})
		}
	})

	t.Run("expired code", func(t *testing.T) {
		f := setupTestFixture(t)
		code, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)

		f.now = f.now.Add(11 * time.Minute)
		_, err = f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, testRedirectURI)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	})

	t.Run("concurrent exchanges succeed at most once", func(t *testing.T) {
		f := setupTestFixture(t)
		code, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
		require.NoError(t, err)

		var wins int32
		var wg sync.WaitGroup
		for n := 0; n < 10; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.issuer.Exchange(ctx, code, f.client.ID, f.client.Secret, testRedirectURI); err == nil {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins)
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
	require.NoError(t, err)
	f.now = f.now.Add(5 * time.Minute)
	_, err = f.issuer.Issue(ctx, testUserID, f.client.ID, testRedirectURI)
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Minute)
	removed, err := f.issuer.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, f.repo.Len())
}
