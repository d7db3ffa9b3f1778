package fakeentitlementrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

var _ entitlements.EnrollmentRepo = (*FakeEnrollmentRepo)(nil)

type enrollmentKey struct {
	userID   string
	courseID string
}

// FakeEnrollmentRepo enforces the (user, course) unique key the same way the
// database does. Upsert is atomic under the lock.
type FakeEnrollmentRepo struct {
	enrollments map[enrollmentKey]*entitlements.Enrollment
	lock        sync.RWMutex
}

func NewFakeEnrollmentRepo() *FakeEnrollmentRepo {
	return &FakeEnrollmentRepo{
		enrollments: make(map[enrollmentKey]*entitlements.Enrollment),
	}
}

func (r *FakeEnrollmentRepo) UpdateUnlockedForUser(_ context.Context, userID string, unlocked int) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := 0
	for k, e := range r.enrollments {
		if k.userID == userID {
			e.UnlockedCourses = unlocked
			n++
		}
	}
	return n, nil
}

func (r *FakeEnrollmentRepo) Upsert(_ context.Context, enrollment *entitlements.Enrollment) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	key := enrollmentKey{userID: enrollment.UserID, courseID: enrollment.CourseID}
	if existing, ok := r.enrollments[key]; ok {
		existing.UnlockedCourses = enrollment.UnlockedCourses
		existing.UpdatedAt = enrollment.UpdatedAt
		return nil
	}
	e := *enrollment
	r.enrollments[key] = &e
	return nil
}

// Create inserts a row and fails with ErrDuplicate if the key exists
func (r *FakeEnrollmentRepo) Create(_ context.Context, enrollment *entitlements.Enrollment) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	key := enrollmentKey{userID: enrollment.UserID, courseID: enrollment.CourseID}
	if _, ok := r.enrollments[key]; ok {
		return apperrors.ErrDuplicate
	}
	e := *enrollment
	r.enrollments[key] = &e
	return nil
}

func (r *FakeEnrollmentRepo) UpdateUnlocked(_ context.Context, userID, courseID string, unlocked int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	e, ok := r.enrollments[enrollmentKey{userID: userID, courseID: courseID}]
	if !ok {
		return apperrors.NotFound("enrollment", userID+"/"+courseID)
	}
	e.UnlockedCourses = unlocked
	return nil
}

func (r *FakeEnrollmentRepo) ListForUser(_ context.Context, userID string) ([]*entitlements.Enrollment, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*entitlements.Enrollment, 0)
	for k, e := range r.enrollments {
		if k.userID == userID {
			c := *e
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CourseID < list[j].CourseID })
	return list, nil
}

func (r *FakeEnrollmentRepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.enrollments)
}
