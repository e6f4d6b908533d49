package models

import "time"

// Enrollment captures a student's registration to a course. Dropping sets
// active to false; history rows are never deleted, and at most one active
// row exists per (student, course) pair.
type Enrollment struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	CourseID   string     `db:"course_id" json:"course_id"`
	Active     bool       `db:"active" json:"active"`
	EnrolledAt time.Time  `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time `db:"dropped_at" json:"dropped_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentNo   string `db:"student_no" json:"student_no"`
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
}
