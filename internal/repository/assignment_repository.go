package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/lms-api/internal/models"
)

// AssignmentRepository persists instructor-course teaching assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Exists checks whether the instructor is assigned to the course.
func (r *AssignmentRepository) Exists(ctx context.Context, instructorID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM course_instructors WHERE instructor_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, instructorID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// Assign adds the instructor to the course's teaching set. Repeating an
// existing assignment is a no-op.
func (r *AssignmentRepository) Assign(ctx context.Context, instructorID, courseID string) error {
	const query = `INSERT INTO course_instructors (instructor_id, course_id, created_at)
        VALUES ($1, $2, $3) ON CONFLICT (instructor_id, course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, instructorID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Unassign removes the instructor from the course's teaching set. Removing a
// missing assignment is a no-op.
func (r *AssignmentRepository) Unassign(ctx context.Context, instructorID, courseID string) error {
	const query = `DELETE FROM course_instructors WHERE instructor_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, instructorID, courseID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// ListCoursesByInstructor returns the courses assigned to an instructor.
func (r *AssignmentRepository) ListCoursesByInstructor(ctx context.Context, instructorID string, page, size int) ([]models.Course, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.code, c.title, c.description, c.lecture_hall, c.lecture_day, c.lecture_time,
        c.capacity, c.enrollment_open, c.created_at, c.updated_at
        FROM course_instructors ci
        JOIN courses c ON c.id = ci.course_id
        WHERE ci.instructor_id = $1
        ORDER BY ci.created_at ASC, c.id ASC LIMIT %d OFFSET %d`, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, 0, fmt.Errorf("list assigned courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM course_instructors WHERE instructor_id = $1", instructorID); err != nil {
		return nil, 0, fmt.Errorf("count assigned courses: %w", err)
	}
	return courses, total, nil
}
