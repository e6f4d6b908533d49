package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/lms-api/internal/models"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

type mockInstructorRepo struct {
	instructors map[string]models.Instructor
}

func (m *mockInstructorRepo) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	var out []models.Instructor
	for _, i := range m.instructors {
		out = append(out, i)
	}
	return out, len(out), nil
}

func (m *mockInstructorRepo) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if i, ok := m.instructors[id]; ok {
		return &i, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInstructorRepo) ExistsByStaffNo(ctx context.Context, staffNo, excludeID string) (bool, error) {
	for id, i := range m.instructors {
		if i.StaffNo == staffNo && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInstructorRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, i := range m.instructors {
		if i.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInstructorRepo) Create(ctx context.Context, instructor *models.Instructor) error {
	if m.instructors == nil {
		m.instructors = make(map[string]models.Instructor)
	}
	if instructor.ID == "" {
		instructor.ID = fmt.Sprintf("ins-%d", len(m.instructors)+1)
	}
	m.instructors[instructor.ID] = *instructor
	return nil
}

func (m *mockInstructorRepo) Update(ctx context.Context, instructor *models.Instructor) error {
	m.instructors[instructor.ID] = *instructor
	return nil
}

func (m *mockInstructorRepo) Delete(ctx context.Context, id string) error {
	delete(m.instructors, id)
	return nil
}

type mockAssignmentStore struct {
	memberships map[string]bool // instructorID|courseID
}

func (m *mockAssignmentStore) Assign(ctx context.Context, instructorID, courseID string) error {
	if m.memberships == nil {
		m.memberships = make(map[string]bool)
	}
	m.memberships[instructorID+"|"+courseID] = true
	return nil
}

func (m *mockAssignmentStore) Unassign(ctx context.Context, instructorID, courseID string) error {
	delete(m.memberships, instructorID+"|"+courseID)
	return nil
}

func (m *mockAssignmentStore) ListCoursesByInstructor(ctx context.Context, instructorID string, page, size int) ([]models.Course, int, error) {
	var courses []models.Course
	for key := range m.memberships {
		if key[:len(instructorID)] == instructorID {
			courses = append(courses, models.Course{ID: key[len(instructorID)+1:]})
		}
	}
	return courses, len(courses), nil
}

func newInstructorFixture() (*InstructorService, *mockInstructorRepo, *mockAssignmentStore, *mockLinkerAccountRepo) {
	repo := &mockInstructorRepo{}
	courses := &mockExistsRepo{ids: map[string]bool{"crs-1": true}}
	assignments := &mockAssignmentStore{}
	linkerRepo := &mockLinkerAccountRepo{}
	linker := NewAccountLinker(linkerRepo, zap.NewNop(), "ChangeMe123!")
	svc := NewInstructorService(repo, courses, assignments, linker, validator.New(), zap.NewNop())
	return svc, repo, assignments, linkerRepo
}

func TestInstructorServiceCreate(t *testing.T) {
	svc, repo, _, linkerRepo := newInstructorFixture()

	instructor, err := svc.Create(context.Background(), CreateInstructorRequest{
		StaffNo:   "T-2001",
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "Grace@Example.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.edu", instructor.Email)
	assert.Len(t, repo.instructors, 1)

	require.Equal(t, 1, linkerRepo.creates)
	account := linkerRepo.accounts["grace@example.edu"]
	assert.Equal(t, models.RoleInstructor, account.Role)
}

func TestInstructorServiceCreateDuplicateStaffNo(t *testing.T) {
	svc, repo, _, _ := newInstructorFixture()
	repo.instructors = map[string]models.Instructor{
		"ins-1": {ID: "ins-1", StaffNo: "T-2001", Email: "other@example.edu"},
	}

	_, err := svc.Create(context.Background(), CreateInstructorRequest{
		StaffNo:   "T-2001",
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.edu",
	})
	require.Error(t, err)
	assert.Equal(t, "staff_no already used", appErrors.FromError(err).Message)
}

func TestInstructorServiceAssignIdempotent(t *testing.T) {
	svc, repo, assignments, _ := newInstructorFixture()
	repo.instructors = map[string]models.Instructor{"ins-1": {ID: "ins-1", StaffNo: "T-2001"}}

	require.NoError(t, svc.AssignToCourse(context.Background(), "ins-1", "crs-1"))
	require.NoError(t, svc.AssignToCourse(context.Background(), "ins-1", "crs-1"))
	assert.Len(t, assignments.memberships, 1)
}

func TestInstructorServiceAssignUnknownCourse(t *testing.T) {
	svc, repo, _, _ := newInstructorFixture()
	repo.instructors = map[string]models.Instructor{"ins-1": {ID: "ins-1", StaffNo: "T-2001"}}

	err := svc.AssignToCourse(context.Background(), "ins-1", "crs-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestInstructorServiceUnassignMissingMembership(t *testing.T) {
	svc, repo, _, _ := newInstructorFixture()
	repo.instructors = map[string]models.Instructor{"ins-1": {ID: "ins-1", StaffNo: "T-2001"}}

	// Removing an absent membership is not an error.
	require.NoError(t, svc.UnassignFromCourse(context.Background(), "ins-1", "crs-1"))
}

func TestInstructorServiceListAssignedCourses(t *testing.T) {
	svc, repo, assignments, _ := newInstructorFixture()
	repo.instructors = map[string]models.Instructor{"ins-1": {ID: "ins-1", StaffNo: "T-2001"}}
	assignments.memberships = map[string]bool{"ins-1|crs-1": true}

	courses, pagination, err := svc.ListAssignedCourses(context.Background(), "ins-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "crs-1", courses[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}
