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

// AccountRepository provides database access for login accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByUsername returns an account by its case-insensitive username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	const query = `SELECT id, username, password_hash, role, student_id, instructor_id, created_at, updated_at
        FROM accounts WHERE LOWER(username) = LOWER($1) LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by username: %w", err)
	}
	return &account, nil
}

// FindByID returns an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	const query = `SELECT id, username, password_hash, role, student_id, instructor_id, created_at, updated_at
        FROM accounts WHERE id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// FindByStudentID returns the account linked to a student, if any.
func (r *AccountRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Account, error) {
	const query = `SELECT id, username, password_hash, role, student_id, instructor_id, created_at, updated_at
        FROM accounts WHERE student_id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by student: %w", err)
	}
	return &account, nil
}

// Create inserts a new account record.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	const query = `INSERT INTO accounts (id, username, password_hash, role, student_id, instructor_id, created_at, updated_at)
        VALUES (:id, :username, :password_hash, :role, :student_id, :instructor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Update persists role, link and username changes to an account.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now().UTC()
	const query = `UPDATE accounts SET username = :username, role = :role, student_id = :student_id,
        instructor_id = :instructor_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}
