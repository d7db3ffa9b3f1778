package entitlements

import (
	"context"
)

type EnrollmentRepo interface {
	// UpdateUnlockedForUser sets unlocked courses on every enrollment the user has
	UpdateUnlockedForUser(ctx context.Context, userID string, unlocked int) (int, error)
	// Upsert creates the (user, course) row or updates its unlocked count.
	// Stores without a native upsert may return ErrDuplicate on a lost insert race.
	Upsert(ctx context.Context, enrollment *Enrollment) error
	UpdateUnlocked(ctx context.Context, userID, courseID string, unlocked int) error
	ListForUser(ctx context.Context, userID string) ([]*Enrollment, error)
}

type CourseRepo interface {
	// FirstCourseID returns ErrNotFound when the catalogue is empty
	FirstCourseID(ctx context.Context) (string, error)
}

type IntegrationRepo interface {
	Get(ctx context.Context, userID string) (*Integration, error)
	Upsert(ctx context.Context, integration *Integration) error
	Update(ctx context.Context, integration *Integration) error
	ListActive(ctx context.Context) ([]*Integration, error)
}
