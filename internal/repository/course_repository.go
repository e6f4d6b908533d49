package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/lms-api/internal/models"
)

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the filter in insertion-stable order.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(code) LIKE $%d OR LOWER(title) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, code, title, description, lecture_hall, lecture_day, lecture_time, capacity, enrollment_open, created_at, updated_at
        %s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, base, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, description, lecture_hall, lecture_day, lecture_time, capacity, enrollment_open, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByID reports whether a course row exists.
func (r *CourseRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM courses WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course: %w", err)
	}
	return true, nil
}

// ExistsByCode checks the case-insensitive unique code, optionally excluding an ID.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, title, description, lecture_hall, lecture_day, lecture_time, capacity, enrollment_open, created_at, updated_at)
        VALUES (:id, :code, :title, :description, :lecture_hall, :lecture_day, :lecture_time, :capacity, :enrollment_open, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, title = :title, description = :description,
        lecture_hall = :lecture_hall, lecture_day = :lecture_day, lecture_time = :lecture_time,
        capacity = :capacity, enrollment_open = :enrollment_open, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course row.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
