package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusworks/lms-api/internal/models"
)

var (
	admin      = Principal{AccountID: "a1", Role: models.RoleAdmin}
	instructor = Principal{AccountID: "a2", Role: models.RoleInstructor, InstructorID: "i1"}
	student    = Principal{AccountID: "a3", Role: models.RoleStudent, StudentID: "s1"}
)

func TestCourseReadsAllowAnyAuthenticatedRole(t *testing.T) {
	for _, p := range []Principal{admin, instructor, student} {
		assert.True(t, Allow(p, OpListCourses, Target{}), "role %s", p.Role)
		assert.True(t, Allow(p, OpGetCourse, Target{CourseID: "c1"}), "role %s", p.Role)
	}
}

func TestCourseWritesAreAdminOnly(t *testing.T) {
	for _, op := range []Operation{OpCreateCourse, OpUpdateCourse, OpDeleteCourse} {
		assert.True(t, Allow(admin, op, Target{CourseID: "c1"}))
		assert.False(t, Allow(instructor, op, Target{CourseID: "c1"}))
		assert.False(t, Allow(student, op, Target{CourseID: "c1"}))
	}
}

func TestInstructorManagementIsAdminOnly(t *testing.T) {
	ops := []Operation{OpListInstructors, OpCreateInstructor, OpUpdateInstructor, OpDeleteInstructor, OpAssignInstructor, OpUnassignInstructor}
	for _, op := range ops {
		assert.True(t, Allow(admin, op, Target{InstructorID: "i1"}))
		assert.False(t, Allow(instructor, op, Target{InstructorID: "i1"}), "op %s", op)
		assert.False(t, Allow(student, op, Target{InstructorID: "i1"}))
	}
}

func TestInstructorSelfReads(t *testing.T) {
	assert.True(t, Allow(instructor, OpGetInstructor, Target{InstructorID: "i1"}))
	assert.False(t, Allow(instructor, OpGetInstructor, Target{InstructorID: "i2"}))
	assert.True(t, Allow(admin, OpGetInstructor, Target{InstructorID: "i2"}))

	assert.True(t, Allow(instructor, OpListAssignedCourses, Target{InstructorID: "i1"}))
	assert.False(t, Allow(instructor, OpListAssignedCourses, Target{InstructorID: "i2"}))

	// A student is never an instructor self-target.
	assert.False(t, Allow(student, OpGetInstructor, Target{InstructorID: "i1"}))
}

func TestStudentSelfReadsAndProfile(t *testing.T) {
	ops := []Operation{OpGetStudent, OpUpdateStudentProfile, OpListEnrolledCourses, OpListEnrollmentsByStudent, OpListGradesByStudent, OpGradeSummary, OpStudentTranscript}
	for _, op := range ops {
		assert.True(t, Allow(student, op, Target{StudentID: "s1"}), "op %s", op)
		assert.False(t, Allow(student, op, Target{StudentID: "s2"}), "op %s", op)
		assert.True(t, Allow(admin, op, Target{StudentID: "s2"}), "op %s", op)
		assert.False(t, Allow(instructor, op, Target{StudentID: "s1"}), "op %s", op)
	}
}

func TestStudentManagementIsAdminOnly(t *testing.T) {
	for _, op := range []Operation{OpListStudents, OpCreateStudent, OpUpdateStudent, OpDeleteStudent} {
		assert.True(t, Allow(admin, op, Target{StudentID: "s1"}))
		assert.False(t, Allow(student, op, Target{StudentID: "s1"}), "op %s", op)
	}
}

func TestEnrollRequiresOwningStudent(t *testing.T) {
	assert.True(t, Allow(student, OpEnroll, Target{StudentID: "s1", CourseID: "c1"}))
	assert.False(t, Allow(student, OpEnroll, Target{StudentID: "s2", CourseID: "c1"}))
	// Admins do not enroll on behalf of students.
	assert.False(t, Allow(admin, OpEnroll, Target{StudentID: "s1"}))
	assert.False(t, Allow(instructor, OpEnroll, Target{StudentID: "s1"}))

	assert.True(t, Allow(student, OpUnenroll, Target{StudentID: "s1", CourseID: "c1"}))
	assert.False(t, Allow(student, OpUnenroll, Target{StudentID: "s2", CourseID: "c1"}))
}

func TestCourseScopedListsAllowStaff(t *testing.T) {
	for _, op := range []Operation{OpListEnrollmentsByCourse, OpListStudentsForCourse, OpListGradesByCourse} {
		assert.True(t, Allow(admin, op, Target{CourseID: "c1"}))
		assert.True(t, Allow(instructor, op, Target{CourseID: "c1"}))
		assert.False(t, Allow(student, op, Target{CourseID: "c1"}), "op %s", op)
	}
}

func TestUpsertGradeIsInstructorOnly(t *testing.T) {
	assert.True(t, Allow(instructor, OpUpsertGrade, Target{CourseID: "c1"}))
	assert.False(t, Allow(admin, OpUpsertGrade, Target{CourseID: "c1"}))
	assert.False(t, Allow(student, OpUpsertGrade, Target{CourseID: "c1"}))
}

func TestUnknownOperationFailsClosed(t *testing.T) {
	assert.False(t, Allow(admin, Operation("made.up"), Target{}))
}

func TestInvalidRoleAlwaysDenied(t *testing.T) {
	bogus := Principal{AccountID: "x", Role: models.Role("SUPERUSER")}
	assert.False(t, Allow(bogus, OpListCourses, Target{}))
}

func TestMissingLinkNeverMatchesEmptyTarget(t *testing.T) {
	unlinked := Principal{AccountID: "a4", Role: models.RoleStudent}
	assert.False(t, Allow(unlinked, OpGetStudent, Target{}))
	assert.False(t, Allow(unlinked, OpEnroll, Target{}))
}
