package models

import "time"

// Student represents a student record. StudentNo, email and names are
// authoritative (admin-managed); phone and address are student-editable.
type Student struct {
	ID        string    `db:"id" json:"id"`
	StudentNo string    `db:"student_no" json:"student_no"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures criteria for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
