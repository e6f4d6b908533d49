// Package authz holds the pure authorization policy for the API. Rules are
// evaluated against a principal derived from a verified token and a target
// extracted from the request; the evaluator performs no I/O and fails closed
// for any operation it does not know.
package authz

import "github.com/campusworks/lms-api/internal/models"

// Principal is the verified identity attached to a request.
type Principal struct {
	AccountID    string
	Role         models.Role
	StudentID    string
	InstructorID string
}

// Target identifies the resource an operation acts on. Fields not relevant
// to the operation stay empty.
type Target struct {
	StudentID    string
	InstructorID string
	CourseID     string
}

// Operation enumerates every protected operation of the API surface.
type Operation string

const (
	OpListCourses  Operation = "courses.list"
	OpGetCourse    Operation = "courses.get"
	OpCreateCourse Operation = "courses.create"
	OpUpdateCourse Operation = "courses.update"
	OpDeleteCourse Operation = "courses.delete"

	OpListInstructors       Operation = "instructors.list"
	OpGetInstructor         Operation = "instructors.get"
	OpCreateInstructor      Operation = "instructors.create"
	OpUpdateInstructor      Operation = "instructors.update"
	OpDeleteInstructor      Operation = "instructors.delete"
	OpAssignInstructor      Operation = "instructors.assign"
	OpUnassignInstructor    Operation = "instructors.unassign"
	OpListAssignedCourses   Operation = "instructors.courses"

	OpListStudents         Operation = "students.list"
	OpGetStudent           Operation = "students.get"
	OpCreateStudent        Operation = "students.create"
	OpUpdateStudent        Operation = "students.update"
	OpUpdateStudentProfile Operation = "students.profile"
	OpDeleteStudent        Operation = "students.delete"
	OpListEnrolledCourses  Operation = "students.courses"

	OpEnroll                   Operation = "enrollments.enroll"
	OpUnenroll                 Operation = "enrollments.unenroll"
	OpListEnrollmentsByStudent Operation = "enrollments.by_student"
	OpListEnrollmentsByCourse  Operation = "enrollments.by_course"
	OpListStudentsForCourse    Operation = "enrollments.roster"

	OpUpsertGrade         Operation = "grades.upsert"
	OpListGradesByStudent Operation = "grades.by_student"
	OpListGradesByCourse  Operation = "grades.by_course"
	OpGradeSummary        Operation = "grades.summary"
	OpStudentTranscript   Operation = "grades.transcript"
)

// Allow decides whether the principal may perform op on target. Unknown
// operations are denied.
func Allow(p Principal, op Operation, t Target) bool {
	if !p.Role.Valid() {
		return false
	}

	switch op {
	case OpListCourses, OpGetCourse:
		return true

	case OpCreateCourse, OpUpdateCourse, OpDeleteCourse,
		OpListInstructors, OpCreateInstructor, OpUpdateInstructor, OpDeleteInstructor,
		OpAssignInstructor, OpUnassignInstructor,
		OpListStudents, OpCreateStudent, OpUpdateStudent, OpDeleteStudent:
		return p.Role == models.RoleAdmin

	case OpGetInstructor, OpListAssignedCourses:
		return p.Role == models.RoleAdmin || ownInstructor(p, t)

	case OpGetStudent, OpUpdateStudentProfile, OpListEnrolledCourses,
		OpListEnrollmentsByStudent, OpListGradesByStudent, OpGradeSummary, OpStudentTranscript:
		return p.Role == models.RoleAdmin || ownStudent(p, t)

	case OpEnroll, OpUnenroll:
		return ownStudent(p, t)

	case OpListEnrollmentsByCourse, OpListStudentsForCourse, OpListGradesByCourse:
		return p.Role == models.RoleAdmin || p.Role == models.RoleInstructor

	case OpUpsertGrade:
		// Course assignment is verified by the grading engine.
		return p.Role == models.RoleInstructor
	}

	return false
}

func ownStudent(p Principal, t Target) bool {
	return p.Role == models.RoleStudent && p.StudentID != "" && p.StudentID == t.StudentID
}

func ownInstructor(p Principal, t Target) bool {
	return p.Role == models.RoleInstructor && p.InstructorID != "" && p.InstructorID == t.InstructorID
}
