package entitlements_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	fakeentitlementrepo "github.com/jrsteele09/go-entitlement-auth/entitlements/fakerepo"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUserID     = "user-1"
	testExternalID = "ss-100"
	firstCourseID  = "course-1"
)

// insertOnlyEnrollmentRepo behaves like a store without a native upsert:
// a second insert of the same key reports ErrDuplicate
type insertOnlyEnrollmentRepo struct {
	*fakeentitlementrepo.FakeEnrollmentRepo
}

func (r insertOnlyEnrollmentRepo) Upsert(ctx context.Context, e *entitlements.Enrollment) error {
	return r.Create(ctx, e)
}

type testFixture struct {
	engine       *entitlements.Engine
	enrollments  *fakeentitlementrepo.FakeEnrollmentRepo
	courses      *fakeentitlementrepo.FakeCourseRepo
	integrations *fakeentitlementrepo.FakeIntegrationRepo
	now          time.Time
}

func setupTestFixture(t *testing.T, insertOnly bool) *testFixture {
	t.Helper()
	f := &testFixture{
		enrollments:  fakeentitlementrepo.NewFakeEnrollmentRepo(),
		courses:      fakeentitlementrepo.NewFakeCourseRepo(firstCourseID, "course-2"),
		integrations: fakeentitlementrepo.NewFakeIntegrationRepo(),
		now:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	var enrollmentRepo entitlements.EnrollmentRepo = f.enrollments
	if insertOnly {
		enrollmentRepo = insertOnlyEnrollmentRepo{f.enrollments}
	}
	engine, err := entitlements.NewEngine(enrollmentRepo, f.courses, f.integrations,
		entitlements.WithLogger(zerolog.Nop()),
		entitlements.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func TestTierToUnlockedCourses(t *testing.T) {
	tests := []struct {
		tier string
		want int
	}{
		{"free", 2},
		{"accelerator", 4},
		{"premium", 7},
		{"PREMIUM", 7},
		{" Accelerator ", 4},
		{"enterprise", 1},
		{"", 1},
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			require.Equal(t, tt.want, entitlements.TierToUnlockedCourses(tt.tier))
		})
	}
	require.True(t, entitlements.IsKnownTier("Free"))
	require.False(t, entitlements.IsKnownTier("gold"))
}

func TestNewEngine_RequiresRepos(t *testing.T) {
	_, err := entitlements.NewEngine(nil, nil, nil)
	require.Error(t, err)
}

func TestSyncTier(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the baseline enrollment", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "premium"))

		list, err := f.engine.Enrollments(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, firstCourseID, list[0].CourseID)
		require.Equal(t, 7, list[0].UnlockedCourses)
	})

	t.Run("updates every existing enrollment", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.enrollments.Upsert(ctx, &entitlements.Enrollment{UserID: testUserID, CourseID: "course-2", UnlockedCourses: 7}))
		require.NoError(t, f.enrollments.Upsert(ctx, &entitlements.Enrollment{UserID: "someone-else", CourseID: "course-2", UnlockedCourses: 7}))

		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "free"))

		list, err := f.engine.Enrollments(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, e := range list {
			require.Equal(t, 2, e.UnlockedCourses)
		}
		others, err := f.engine.Enrollments(ctx, "someone-else")
		require.NoError(t, err)
		require.Equal(t, 7, others[0].UnlockedCourses)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "accelerator"))
		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "accelerator"))
		require.Equal(t, 1, f.enrollments.Count())
	})

	t.Run("unknown tier unlocks one course", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "platinum"))
		list, err := f.engine.Enrollments(ctx, testUserID)
		require.NoError(t, err)
		require.Equal(t, 1, list[0].UnlockedCourses)
	})

	t.Run("empty catalogue skips the baseline", func(t *testing.T) {
		f := setupTestFixture(t, false)
		engine, err := entitlements.NewEngine(f.enrollments, fakeentitlementrepo.NewFakeCourseRepo(), f.integrations,
			entitlements.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		require.NoError(t, engine.SyncTier(ctx, testUserID, "premium"))
		require.Equal(t, 0, f.enrollments.Count())
	})

	t.Run("user id is required", func(t *testing.T) {
		f := setupTestFixture(t, false)
		err := f.engine.SyncTier(ctx, "", "premium")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("duplicate insert falls back to update", func(t *testing.T) {
		f := setupTestFixture(t, true)
		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "free"))
		require.NoError(t, f.engine.SyncTier(ctx, testUserID, "premium"))

		list, err := f.engine.Enrollments(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, 7, list[0].UnlockedCourses)
	})
}

func TestSyncTier_ConcurrentCallsConverge(t *testing.T) {
	for name, insertOnly := range map[string]bool{"native upsert": false, "insert only": true} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := setupTestFixture(t, insertOnly)

			var wg sync.WaitGroup
			errs := make(chan error, 16)
			for n := 0; n < 16; n++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- f.engine.SyncTier(ctx, testUserID, "accelerator")
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			list, err := f.engine.Enrollments(ctx, testUserID)
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, firstCourseID, list[0].CourseID)
			require.Equal(t, 4, list[0].UnlockedCourses)
		})
	}
}

func TestSyncIntegrationTier(t *testing.T) {
	ctx := context.Background()

	t.Run("no record is created when none exists", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.engine.SyncIntegrationTier(ctx, testUserID, testExternalID, "premium"))
		require.Equal(t, 0, f.integrations.Count())
		require.Equal(t, 1, f.enrollments.Count())
	})

	t.Run("stamps an existing record", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.integrations.Upsert(ctx, &entitlements.Integration{
			UserID:            testUserID,
			SoloSuccessUserID: testExternalID,
			SubscriptionTier:  "free",
			IsActive:          true,
			SyncStatus:        entitlements.SyncStatusError,
			LastError:         "boom",
		}))

		require.NoError(t, f.engine.SyncIntegrationTier(ctx, testUserID, testExternalID, "Premium"))

		status, err := f.engine.Status(ctx, testUserID)
		require.NoError(t, err)
		require.Equal(t, "premium", status.SubscriptionTier)
		require.Equal(t, entitlements.SyncStatusSynced, status.SyncStatus)
		require.Empty(t, status.LastError)
		require.NotNil(t, status.LastSyncAt)
		require.Equal(t, f.now, *status.LastSyncAt)
	})

	t.Run("mismatched external id still stamps the tier", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.NoError(t, f.integrations.Upsert(ctx, &entitlements.Integration{
			UserID:            testUserID,
			SoloSuccessUserID: testExternalID,
			SubscriptionTier:  "free",
			IsActive:          true,
			SyncStatus:        entitlements.SyncStatusSynced,
		}))

		require.NoError(t, f.engine.SyncIntegrationTier(ctx, testUserID, "ss-other", "premium"))

		status, err := f.engine.Status(ctx, testUserID)
		require.NoError(t, err)
		require.Equal(t, "premium", status.SubscriptionTier)
		require.Equal(t, testExternalID, status.SoloSuccessUserID)

		// a later sweep re-applies the stamped tier, so enrollments stay put
		require.NoError(t, f.engine.SyncIntegrationTier(ctx, testUserID, status.SoloSuccessUserID, status.SubscriptionTier))
		list, err := f.engine.Enrollments(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, 7, list[0].UnlockedCourses)
	})
}

func TestBindIntegration(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, false)

	integration, err := f.engine.BindIntegration(ctx, testUserID, testExternalID, "accelerator")
	require.NoError(t, err)
	require.True(t, integration.IsActive)
	require.Equal(t, testExternalID, integration.SoloSuccessUserID)
	require.Equal(t, entitlements.SyncStatusSynced, integration.SyncStatus)

	list, err := f.engine.Enrollments(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 4, list[0].UnlockedCourses)

	_, err = f.engine.BindIntegration(ctx, testUserID, "", "free")
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestStatusAndMarkError(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, false)

	_, err := f.engine.Status(ctx, testUserID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.engine.BindIntegration(ctx, testUserID, testExternalID, "free")
	require.NoError(t, err)

	require.NoError(t, f.engine.MarkError(ctx, testUserID, apperrors.ErrInternal))
	status, err := f.engine.Status(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, entitlements.SyncStatusError, status.SyncStatus)
	require.Equal(t, apperrors.ErrInternal.Error(), status.LastError)

	active, err := f.engine.ActiveIntegrations(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}
