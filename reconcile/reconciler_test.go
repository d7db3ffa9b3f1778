package reconcile_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	fakeentitlementrepo "github.com/jrsteele09/go-entitlement-auth/entitlements/fakerepo"
	"github.com/jrsteele09/go-entitlement-auth/reconcile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const failingUserID = "user-3"

// failingEnrollmentRepo rejects writes for one user
type failingEnrollmentRepo struct {
	*fakeentitlementrepo.FakeEnrollmentRepo
}

func (r failingEnrollmentRepo) UpdateUnlockedForUser(ctx context.Context, userID string, unlocked int) (int, error) {
	if userID == failingUserID {
		return 0, errors.New("connection reset")
	}
	return r.FakeEnrollmentRepo.UpdateUnlockedForUser(ctx, userID, unlocked)
}

// cancellingSyncer ends the sweep's context after the first record
type cancellingSyncer struct {
	reconcile.Syncer
	cancel context.CancelFunc
}

func (s cancellingSyncer) SyncIntegrationTier(ctx context.Context, userID, externalID, tier string) error {
	defer s.cancel()
	return s.Syncer.SyncIntegrationTier(ctx, userID, externalID, tier)
}

type testFixture struct {
	engine       *entitlements.Engine
	integrations *fakeentitlementrepo.FakeIntegrationRepo
	enrollments  *fakeentitlementrepo.FakeEnrollmentRepo
}

func setupTestFixture(t *testing.T, n int) *testFixture {
	t.Helper()
	ctx := context.Background()
	f := &testFixture{
		integrations: fakeentitlementrepo.NewFakeIntegrationRepo(),
		enrollments:  fakeentitlementrepo.NewFakeEnrollmentRepo(),
	}
	engine, err := entitlements.NewEngine(
		failingEnrollmentRepo{f.enrollments},
		fakeentitlementrepo.NewFakeCourseRepo("course-1"),
		f.integrations,
		entitlements.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	f.engine = engine

	for i := 1; i <= n; i++ {
		require.NoError(t, f.integrations.Upsert(ctx, &entitlements.Integration{
			UserID:            fmt.Sprintf("user-%d", i),
			SoloSuccessUserID: fmt.Sprintf("ss-%d", i),
			SubscriptionTier:  "premium",
			IsActive:          true,
			SyncStatus:        entitlements.SyncStatusPending,
		}))
	}
	// inactive records are not swept
	require.NoError(t, f.integrations.Upsert(ctx, &entitlements.Integration{
		UserID:            "user-inactive",
		SoloSuccessUserID: "ss-inactive",
		SubscriptionTier:  "premium",
		SyncStatus:        entitlements.SyncStatusPending,
	}))
	return f
}

func TestNew_RequiresSyncer(t *testing.T) {
	_, err := reconcile.New(nil)
	require.Error(t, err)
}

func TestSyncAll_IsolatesFailures(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			ctx := context.Background()
			f := setupTestFixture(t, 5)
			r, err := reconcile.New(f.engine, reconcile.WithConcurrency(concurrency), reconcile.WithLogger(zerolog.Nop()))
			require.NoError(t, err)

			result, err := r.SyncAll(ctx)
			require.NoError(t, err)
			require.Equal(t, reconcile.Result{Success: 4, Failed: 1}, result)

			for i := 1; i <= 5; i++ {
				userID := fmt.Sprintf("user-%d", i)
				status, err := f.engine.Status(ctx, userID)
				require.NoError(t, err)
				if userID == failingUserID {
					require.Equal(t, entitlements.SyncStatusError, status.SyncStatus)
					require.Contains(t, status.LastError, "connection reset")
					continue
				}
				require.Equal(t, entitlements.SyncStatusSynced, status.SyncStatus)
			}

			inactive, err := f.engine.Status(ctx, "user-inactive")
			require.NoError(t, err)
			require.Equal(t, entitlements.SyncStatusPending, inactive.SyncStatus)
			require.Equal(t, 4, f.enrollments.Count())
		})
	}
}

func TestSyncAll_StopsWhenContextEnds(t *testing.T) {
	f := setupTestFixture(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := reconcile.New(cancellingSyncer{Syncer: f.engine, cancel: cancel}, reconcile.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	result, err := r.SyncAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Success+result.Failed)
	require.Equal(t, 4, result.Skipped)

	pending := 0
	for i := 1; i <= 5; i++ {
		status, err := f.engine.Status(context.Background(), fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		if status.SyncStatus == entitlements.SyncStatusPending {
			pending++
		}
	}
	require.Equal(t, 4, pending)
}

func TestSyncAll_Empty(t *testing.T) {
	f := setupTestFixture(t, 0)
	r, err := reconcile.New(f.engine, reconcile.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	result, err := r.SyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, reconcile.Result{}, result)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := setupTestFixture(t, 2)
	r, err := reconcile.New(f.engine, reconcile.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		status, err := f.engine.Status(context.Background(), "user-1")
		return err == nil && status.SyncStatus == entitlements.SyncStatusSynced
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// zero interval returns immediately
	r.Run(context.Background(), 0)
}
