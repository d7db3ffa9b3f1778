package fakeentitlementrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

var _ entitlements.CourseRepo = (*FakeCourseRepo)(nil)

// FakeCourseRepo is an ordered course catalogue
type FakeCourseRepo struct {
	courseIDs []string
	lock      sync.RWMutex
}

func NewFakeCourseRepo(courseIDs ...string) *FakeCourseRepo {
	return &FakeCourseRepo{courseIDs: courseIDs}
}

func (r *FakeCourseRepo) AddCourse(courseID string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.courseIDs = append(r.courseIDs, courseID)
}

func (r *FakeCourseRepo) FirstCourseID(_ context.Context) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if len(r.courseIDs) == 0 {
		return "", apperrors.NotFound("course", "first")
	}
	return r.courseIDs[0], nil
}
