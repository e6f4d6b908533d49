package models

import "time"

// Course represents a taught course. A nil or non-positive capacity means
// unlimited seats.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	LectureHall    string    `db:"lecture_hall" json:"lecture_hall"`
	LectureDay     string    `db:"lecture_day" json:"lecture_day"`
	LectureTime    string    `db:"lecture_time" json:"lecture_time"`
	Capacity       *int      `db:"capacity" json:"capacity,omitempty"`
	EnrollmentOpen bool      `db:"enrollment_open" json:"enrollment_open"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Limited reports whether the course enforces a seat capacity.
func (c *Course) Limited() bool {
	return c.Capacity != nil && *c.Capacity > 0
}

// CourseFilter captures criteria for listing courses.
type CourseFilter struct {
	Search   string
	Page     int
	PageSize int
}
