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

// GradeRepository persists grades, one row per enrollment.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByEnrollmentID fetches the grade attached to an enrollment, if any.
func (r *GradeRepository) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	const query = `SELECT id, enrollment_id, score, created_at, updated_at FROM grades WHERE enrollment_id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// Create inserts a new grade for an enrollment.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (id, enrollment_id, score, created_at, updated_at)
        VALUES (:id, :enrollment_id, :score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// UpdateScore overwrites the score of an existing grade.
func (r *GradeRepository) UpdateScore(ctx context.Context, id string, score int) error {
	const query = `UPDATE grades SET score = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStudent returns the student's grades on active enrollments.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.GradeDetail, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT g.id, e.student_id, e.course_id, c.code AS course_code, c.title AS course_title, g.score
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.active = TRUE
        ORDER BY g.created_at ASC, g.id ASC LIMIT %d OFFSET %d`, size, offset)

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, 0, fmt.Errorf("list student grades: %w", err)
	}

	var total int
	const countQuery = `SELECT COUNT(*) FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        WHERE e.student_id = $1 AND e.active = TRUE`
	if err := r.db.GetContext(ctx, &total, countQuery, studentID); err != nil {
		return nil, 0, fmt.Errorf("count student grades: %w", err)
	}
	return grades, total, nil
}

// ListByCourse returns the grades recorded on the course's active enrollments.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.GradeDetail, int, error) {
	page, size = normalizePage(page, size)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT g.id, e.student_id, e.course_id, c.code AS course_code, c.title AS course_title, g.score
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1 AND e.active = TRUE
        ORDER BY g.created_at ASC, g.id ASC LIMIT %d OFFSET %d`, size, offset)

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, 0, fmt.Errorf("list course grades: %w", err)
	}

	var total int
	const countQuery = `SELECT COUNT(*) FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        WHERE e.course_id = $1 AND e.active = TRUE`
	if err := r.db.GetContext(ctx, &total, countQuery, courseID); err != nil {
		return nil, 0, fmt.Errorf("count course grades: %w", err)
	}
	return grades, total, nil
}

// ListAllByStudent returns every grade on the student's active enrollments,
// unpaginated, for GPA and transcript computation.
func (r *GradeRepository) ListAllByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	const query = `SELECT g.id, e.student_id, e.course_id, c.code AS course_code, c.title AS course_title, g.score
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.active = TRUE
        ORDER BY c.code ASC, g.id ASC`

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list all student grades: %w", err)
	}
	return grades, nil
}
