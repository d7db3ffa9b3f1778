package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/authcode"
	"github.com/jrsteele09/go-entitlement-auth/clients"
	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/storage/postgres"
	"github.com/jrsteele09/go-entitlement-auth/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// setupDB connects to DATABASE_URL and applies the schema. The tests are
// skipped when no database is configured.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

func createUser(t *testing.T, repo *postgres.UserRepo) *users.User {
	t.Helper()
	now := time.Now().UTC()
	u := &users.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         users.RoleUser,
		ExternalID:   "ss-" + uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewUserRepo(pool)

	u := createUser(t, repo)

	byEmail, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byExternal, err := repo.GetByExternalID(ctx, u.ExternalID)
	require.NoError(t, err)
	require.Equal(t, u.ID, byExternal.ID)

	dup := *u
	dup.ID = ""
	dup.ExternalID = ""
	err = repo.Create(ctx, &dup)
	require.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = repo.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCodeRepo_ConsumeOnce(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	clientStore := clients.NewStore(postgres.NewClientRepo(pool), clients.WithLogger(zerolog.Nop()))
	client, err := clientStore.CreateClient(ctx, "pg-test", "https://app.example.com/cb", "", "")
	require.NoError(t, err)

	issuer, err := authcode.NewIssuer(postgres.NewCodeRepo(pool), clientStore, authcode.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	code, err := issuer.Issue(ctx, "user-1", client.ID, "https://app.example.com/cb")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for n := 0; n < 5; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.Exchange(ctx, code, client.ID, client.Secret, "https://app.example.com/cb")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
	}
	require.Equal(t, 1, wins)
}

func TestEnrollmentUpsert_ConcurrentSyncTier(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	courses := postgres.NewCourseRepo(pool)
	require.NoError(t, courses.AddCourse(ctx, "course-000-intro", "Introduction", -1000))

	u := createUser(t, postgres.NewUserRepo(pool))
	engine, err := entitlements.NewEngine(postgres.NewEnrollmentRepo(pool), courses, postgres.NewIntegrationRepo(pool),
		entitlements.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.SyncTier(ctx, u.ID, "accelerator")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := engine.Enrollments(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 4, list[0].UnlockedCourses)
}

func TestIntegrationRepo(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	u := createUser(t, postgres.NewUserRepo(pool))
	courses := postgres.NewCourseRepo(pool)
	require.NoError(t, courses.AddCourse(ctx, "course-000-intro", "Introduction", -1000))
	engine, err := entitlements.NewEngine(postgres.NewEnrollmentRepo(pool), courses, postgres.NewIntegrationRepo(pool),
		entitlements.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	integration, err := engine.BindIntegration(ctx, u.ID, u.ExternalID, "premium")
	require.NoError(t, err)
	require.Equal(t, entitlements.SyncStatusSynced, integration.SyncStatus)
	require.NotNil(t, integration.LastSyncAt)

	require.NoError(t, engine.MarkError(ctx, u.ID, apperrors.ErrInternal))
	status, err := engine.Status(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, entitlements.SyncStatusError, status.SyncStatus)
}
