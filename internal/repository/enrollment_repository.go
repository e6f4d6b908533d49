package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/lms-api/internal/models"
)

// EnrollmentRepository persists course enrollments. A student's history in a
// course may span several rows, but at most one of them is active; the
// partial unique index on (student_id, course_id) WHERE active guards the
// invariant at the database level.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID fetches one enrollment row, active or not.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, active, enrolled_at, dropped_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindActive fetches the student's active enrollment in the course, if any.
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, active, enrolled_at, dropped_at
        FROM enrollments WHERE student_id = $1 AND course_id = $2 AND active = TRUE`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active enrollment: %w", err)
	}
	return &enrollment, nil
}

// ExistsActive reports whether the student currently holds an active
// enrollment in the course.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// CountActiveByCourse returns the number of active enrollments in a course.
func (r *EnrollmentRepository) CountActiveByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND active = TRUE", courseID); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// Create inserts a new active enrollment. Returns ErrDuplicate when the
// partial unique index rejects a second active row for the same pair.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.Active = true
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}

	const query = `INSERT INTO enrollments (id, student_id, course_id, active, enrolled_at)
        VALUES (:id, :student_id, :course_id, :active, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Deactivate marks an enrollment as dropped. The row is kept as history.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, id string, droppedAt time.Time) error {
	const query = `UPDATE enrollments SET active = FALSE, dropped_at = $2 WHERE id = $1 AND active = TRUE`
	result, err := r.db.ExecContext(ctx, query, id, droppedAt)
	if err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStudent returns the student's active enrollments with course details.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.EnrollmentDetail, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.active, e.enrolled_at, e.dropped_at,
        s.student_no, s.first_name || ' ' || s.last_name AS student_name, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.active = TRUE
        ORDER BY e.enrolled_at ASC, e.id ASC LIMIT %d OFFSET %d`, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, 0, fmt.Errorf("list student enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND active = TRUE", studentID); err != nil {
		return nil, 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return enrollments, total, nil
}

// CoursesForStudent projects the courses behind a student's active
// enrollments.
func (r *EnrollmentRepository) CoursesForStudent(ctx context.Context, studentID string, page, size int) ([]models.Course, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.code, c.title, c.description, c.lecture_hall, c.lecture_day, c.lecture_time,
        c.capacity, c.enrollment_open, c.created_at, c.updated_at
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.active = TRUE
        ORDER BY e.enrolled_at ASC, c.id ASC LIMIT %d OFFSET %d`, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, 0, fmt.Errorf("list enrolled courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND active = TRUE", studentID); err != nil {
		return nil, 0, fmt.Errorf("count enrolled courses: %w", err)
	}
	return courses, total, nil
}

// StudentsForCourse projects the students behind a course's active
// enrollments.
func (r *EnrollmentRepository) StudentsForCourse(ctx context.Context, courseID string, page, size int) ([]models.Student, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.student_no, s.first_name, s.last_name, s.email, s.phone, s.address,
        s.created_at, s.updated_at
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1 AND e.active = TRUE
        ORDER BY e.enrolled_at ASC, s.id ASC LIMIT %d OFFSET %d`, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, 0, fmt.Errorf("list enrolled students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND active = TRUE", courseID); err != nil {
		return nil, 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return students, total, nil
}

// ListByCourse returns the course's active enrollments with student details.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.EnrollmentDetail, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.active, e.enrolled_at, e.dropped_at,
        s.student_no, s.first_name || ' ' || s.last_name AS student_name, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1 AND e.active = TRUE
        ORDER BY e.enrolled_at ASC, e.id ASC LIMIT %d OFFSET %d`, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, 0, fmt.Errorf("list course enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND active = TRUE", courseID); err != nil {
		return nil, 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return enrollments, total, nil
}
