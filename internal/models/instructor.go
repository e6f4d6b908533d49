package models

import "time"

// Instructor represents a teaching staff record. Course assignments live in
// the course_instructors join table.
type Instructor struct {
	ID        string    `db:"id" json:"id"`
	StaffNo   string    `db:"staff_no" json:"staff_no"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter captures criteria for listing instructors.
type InstructorFilter struct {
	Search   string
	Page     int
	PageSize int
}
