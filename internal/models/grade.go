package models

import "time"

// Grade stores the numeric score for an enrollment. One grade exists per
// enrollment; upserts mutate the score in place. Letter and grade point are
// derived, never stored.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Score        int       `db:"score" json:"score"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail joins a grade through its enrollment to student and course.
type GradeDetail struct {
	ID          string `db:"id" json:"id"`
	StudentID   string `db:"student_id" json:"student_id"`
	CourseID    string `db:"course_id" json:"course_id"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Score       int    `db:"score" json:"score"`
	Letter      string `json:"letter"`
	GradePoint  float64 `json:"grade_point"`
}

// Derive fills the computed letter and grade point from the score.
func (d *GradeDetail) Derive() {
	d.Letter = LetterFor(d.Score)
	d.GradePoint = GradePointFor(d.Score)
}

// GradeSummary aggregates a student's graded courses into a GPA.
type GradeSummary struct {
	StudentID     string  `json:"student_id"`
	GradedCourses int     `json:"graded_courses"`
	GPA           float64 `json:"gpa"`
}

// GradePointFor maps a 0..100 score to the 4.0 scale. Thresholds are
// inclusive lower bounds.
func GradePointFor(score int) float64 {
	switch {
	case score >= 90:
		return 4.0
	case score >= 85:
		return 3.7
	case score >= 80:
		return 3.3
	case score >= 75:
		return 3.0
	case score >= 70:
		return 2.7
	case score >= 65:
		return 2.3
	case score >= 60:
		return 2.0
	case score >= 55:
		return 1.7
	case score >= 50:
		return 1.0
	default:
		return 0.0
	}
}

// LetterFor maps a 0..100 score to a letter grade.
func LetterFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 85:
		return "A-"
	case score >= 80:
		return "B+"
	case score >= 75:
		return "B"
	case score >= 70:
		return "B-"
	case score >= 65:
		return "C+"
	case score >= 60:
		return "C"
	case score >= 55:
		return "C-"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
