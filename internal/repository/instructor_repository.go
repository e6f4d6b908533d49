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

// InstructorRepository manages persistence for instructor records.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors matching the filter in insertion-stable order.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	base := "FROM instructors WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(staff_no) LIKE $%d OR LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(email) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, staff_no, first_name, last_name, email, phone, created_at, updated_at
        %s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, base, size, offset)

	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}
	return instructors, total, nil
}

// FindByID fetches an instructor by ID.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	const query = `SELECT id, staff_no, first_name, last_name, email, phone, created_at, updated_at
        FROM instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// ExistsByID reports whether an instructor row exists.
func (r *InstructorRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM instructors WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor: %w", err)
	}
	return true, nil
}

// ExistsByStaffNo checks the natural-key constraint, optionally excluding an ID.
func (r *InstructorRepository) ExistsByStaffNo(ctx context.Context, staffNo, excludeID string) (bool, error) {
	query := "SELECT 1 FROM instructors WHERE LOWER(staff_no) = LOWER($1)"
	args := []interface{}{staffNo}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check staff_no: %w", err)
	}
	return true, nil
}

// ExistsByEmail checks email uniqueness, optionally excluding an ID.
func (r *InstructorRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT 1 FROM instructors WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor email: %w", err)
	}
	return true, nil
}

// Create inserts a new instructor record.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now
	const query = `INSERT INTO instructors (id, staff_no, first_name, last_name, email, phone, created_at, updated_at)
        VALUES (:id, :staff_no, :first_name, :last_name, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// Update modifies an existing instructor.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE instructors SET staff_no = :staff_no, first_name = :first_name, last_name = :last_name,
        email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update instructor: %w", err)
	}
	return nil
}

// Delete removes an instructor row. The linked account, if any, is kept.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM instructors WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete instructor: %w", err)
	}
	return nil
}
