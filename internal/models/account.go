package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of roles understood by the policy evaluator.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Account represents a login account stored in the accounts table. An account
// links to at most one student and at most one instructor; an admin account
// links to neither.
type Account struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LoginRequest holds credentials for authenticating an account.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the resolved identity.
type LoginResponse struct {
	Token        string    `json:"token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	Role         Role      `json:"role"`
	AccountID    string    `json:"account_id"`
	StudentID    *string   `json:"student_id,omitempty"`
	InstructorID *string   `json:"instructor_id,omitempty"`
}

// TokenClaims is the JWT payload for access tokens. The token is the sole
// source of identity for its lifetime; claims are never re-resolved against
// storage during verification.
type TokenClaims struct {
	AccountID    string `json:"uid"`
	Role         Role   `json:"role"`
	StudentID    string `json:"sid,omitempty"`
	InstructorID string `json:"iid,omitempty"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
