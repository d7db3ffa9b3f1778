package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/entitlements"
)

var (
	_ entitlements.EnrollmentRepo = (*EnrollmentRepo)(nil)
	_ entitlements.CourseRepo     = (*CourseRepo)(nil)
)

type EnrollmentRepo struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepo(pool *pgxpool.Pool) *EnrollmentRepo {
	return &EnrollmentRepo{pool: pool}
}

func (r *EnrollmentRepo) UpdateUnlockedForUser(ctx context.Context, userID string, unlocked int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE enrollments SET unlocked_courses = $2, updated_at = NOW()
		WHERE user_id = $1`, userID, unlocked)
	if err != nil {
		return 0, mapError(err, "enrollments", userID)
	}
	return int(tag.RowsAffected()), nil
}

// Upsert lets the (user_id, course_id) key arbitrate concurrent creates
func (r *EnrollmentRepo) Upsert(ctx context.Context, e *entitlements.Enrollment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO enrollments (user_id, course_id, unlocked_courses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			unlocked_courses = EXCLUDED.unlocked_courses,
			updated_at = EXCLUDED.updated_at`,
		e.UserID, e.CourseID, e.UnlockedCourses, e.CreatedAt, e.UpdatedAt)
	return mapError(err, "enrollment", e.UserID+"/"+e.CourseID)
}

func (r *EnrollmentRepo) UpdateUnlocked(ctx context.Context, userID, courseID string, unlocked int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE enrollments SET unlocked_courses = $3, updated_at = NOW()
		WHERE user_id = $1 AND course_id = $2`, userID, courseID, unlocked)
	if err != nil {
		return mapError(err, "enrollment", userID+"/"+courseID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "enrollment", userID+"/"+courseID)
	}
	return nil
}

func (r *EnrollmentRepo) ListForUser(ctx context.Context, userID string) ([]*entitlements.Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, course_id, unlocked_courses, created_at, updated_at
		FROM enrollments WHERE user_id = $1
		ORDER BY course_id`, userID)
	if err != nil {
		return nil, mapError(err, "enrollments", userID)
	}
	defer rows.Close()

	list := make([]*entitlements.Enrollment, 0)
	for rows.Next() {
		var e entitlements.Enrollment
		if err := rows.Scan(&e.UserID, &e.CourseID, &e.UnlockedCourses, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, mapError(err, "enrollments", userID)
		}
		list = append(list, &e)
	}
	return list, mapError(rows.Err(), "enrollments", userID)
}

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) FirstCourseID(ctx context.Context) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM courses ORDER BY position, created_at, id LIMIT 1`).Scan(&id)
	if err != nil {
		return "", mapError(err, "course", "first")
	}
	return id, nil
}

// AddCourse inserts or renames a catalogue entry
func (r *CourseRepo) AddCourse(ctx context.Context, id, title string, position int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO courses (id, title, position) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, position = EXCLUDED.position`,
		id, title, position)
	return mapError(err, "course", id)
}
