package entitlements

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine applies subscription tiers to enrollments and keeps the
// integration audit record current
type Engine struct {
	enrollments  EnrollmentRepo
	courses      CourseRepo
	integrations IntegrationRepo
	logger       zerolog.Logger
	nowFunc      func() time.Time
}

type EngineOption func(*Engine)

func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

func NewEngine(enrollments EnrollmentRepo, courses CourseRepo, integrations IntegrationRepo, options ...EngineOption) (*Engine, error) {
	if enrollments == nil {
		return nil, errors.New("[NewEngine] enrollment repo is required")
	}
	if courses == nil {
		return nil, errors.New("[NewEngine] course repo is required")
	}
	if integrations == nil {
		return nil, errors.New("[NewEngine] integration repo is required")
	}
	e := &Engine{
		enrollments:  enrollments,
		courses:      courses,
		integrations: integrations,
		logger:       log.Logger,
		nowFunc:      time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// SyncTier converges the user's enrollments on the tier's unlocked count.
// Repeating it, or running it concurrently, leaves the same final state.
func (e *Engine) SyncTier(ctx context.Context, userID, tier string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Validation("userId", "is required")
	}
	unlocked := TierToUnlockedCourses(tier)

	if _, err := e.enrollments.UpdateUnlockedForUser(ctx, userID, unlocked); err != nil {
		return errors.Wrap(err, "[Engine.SyncTier] UpdateUnlockedForUser")
	}

	courseID, err := e.courses.FirstCourseID(ctx)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		e.logger.Warn().Str("user_id", userID).Msg("no courses in catalogue, skipping baseline enrollment")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Engine.SyncTier] FirstCourseID")
	}

	now := e.nowFunc()
	err = e.enrollments.Upsert(ctx, &Enrollment{
		UserID:          userID,
		CourseID:        courseID,
		UnlockedCourses: unlocked,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if apperrors.Is(err, apperrors.ErrDuplicate) {
		// another caller created the row first
		err = e.enrollments.UpdateUnlocked(ctx, userID, courseID, unlocked)
	}
	if err != nil {
		return errors.Wrap(err, "[Engine.SyncTier] baseline enrollment")
	}

	e.logger.Debug().Str("user_id", userID).Str("tier", NormalizeTier(tier)).Int("unlocked_courses", unlocked).Msg("tier synced")
	return nil
}

// SyncIntegrationTier syncs the tier and then stamps the integration record
// whenever one exists. A user with no integration record is synced but no
// record is created.
func (e *Engine) SyncIntegrationTier(ctx context.Context, userID, externalID, tier string) error {
	if err := e.SyncTier(ctx, userID, tier); err != nil {
		return err
	}

	integration, err := e.integrations.Get(ctx, userID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		e.logger.Info().Str("user_id", userID).Msg("no integration record, skipping audit update")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Engine.SyncIntegrationTier] integrations.Get")
	}
	if externalID != "" && integration.SoloSuccessUserID != externalID {
		// binding is kept, only BindIntegration rebinds
		e.logger.Warn().
			Str("user_id", userID).
			Str("bound_external_id", integration.SoloSuccessUserID).
			Str("external_id", externalID).
			Msg("external id does not match integration record")
	}

	now := e.nowFunc()
	integration.SubscriptionTier = NormalizeTier(tier)
	integration.SyncStatus = SyncStatusSynced
	integration.LastSyncAt = &now
	integration.LastError = ""
	integration.UpdatedAt = now
	if err := e.integrations.Update(ctx, integration); err != nil {
		return errors.Wrap(err, "[Engine.SyncIntegrationTier] integrations.Update")
	}
	return nil
}

// BindIntegration creates or rebinds the integration record for a user and
// applies the tier straight away
func (e *Engine) BindIntegration(ctx context.Context, userID, externalID, tier string) (*Integration, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Validation("userId", "is required")
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, apperrors.Validation("solosuccessUserId", "is required")
	}

	now := e.nowFunc()
	integration := &Integration{
		UserID:            userID,
		SoloSuccessUserID: externalID,
		SubscriptionTier:  NormalizeTier(tier),
		IsActive:          true,
		SyncStatus:        SyncStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.integrations.Upsert(ctx, integration); err != nil {
		return nil, errors.Wrap(err, "[Engine.BindIntegration] integrations.Upsert")
	}

	if err := e.SyncIntegrationTier(ctx, userID, externalID, tier); err != nil {
		if markErr := e.MarkError(ctx, userID, err); markErr != nil {
			e.logger.Err(markErr).Str("user_id", userID).Msg("failed to record sync error")
		}
		return nil, err
	}
	return e.Status(ctx, userID)
}

// Status returns the integration audit snapshot for a user
func (e *Engine) Status(ctx context.Context, userID string) (*Integration, error) {
	integration, err := e.integrations.Get(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("integration", userID)
		}
		return nil, errors.Wrap(err, "[Engine.Status] integrations.Get")
	}
	return integration, nil
}

// MarkError records a failed sync on the integration record
func (e *Engine) MarkError(ctx context.Context, userID string, cause error) error {
	integration, err := e.integrations.Get(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[Engine.MarkError] integrations.Get")
	}
	integration.SyncStatus = SyncStatusError
	if cause != nil {
		integration.LastError = cause.Error()
	}
	integration.UpdatedAt = e.nowFunc()
	if err := e.integrations.Update(ctx, integration); err != nil {
		return errors.Wrap(err, "[Engine.MarkError] integrations.Update")
	}
	return nil
}

// Enrollments lists the user's enrollment rows
func (e *Engine) Enrollments(ctx context.Context, userID string) ([]*Enrollment, error) {
	enrollments, err := e.enrollments.ListForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Engine.Enrollments] ListForUser")
	}
	return enrollments, nil
}

// ActiveIntegrations lists every integration the reconciler should sweep
func (e *Engine) ActiveIntegrations(ctx context.Context) ([]*Integration, error) {
	integrations, err := e.integrations.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Engine.ActiveIntegrations] ListActive")
	}
	return integrations, nil
}
