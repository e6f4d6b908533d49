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

type mockStudentRepo struct {
	students map[string]models.Student
	deleted  []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByStudentNo(ctx context.Context, studentNo, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.StudentNo == studentNo && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = fmt.Sprintf("stu-%d", len(m.students)+1)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentAccountRepo struct {
	byStudent map[string]models.Account
	updates   []models.Account
}

func (m *mockStudentAccountRepo) FindByStudentID(ctx context.Context, studentID string) (*models.Account, error) {
	if a, ok := m.byStudent[studentID]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentAccountRepo) Update(ctx context.Context, account *models.Account) error {
	m.byStudent[*account.StudentID] = *account
	m.updates = append(m.updates, *account)
	return nil
}

func newStudentFixture(syncUsername bool) (*StudentService, *mockStudentRepo, *mockStudentAccountRepo, *mockLinkerAccountRepo) {
	repo := &mockStudentRepo{}
	accounts := &mockStudentAccountRepo{byStudent: make(map[string]models.Account)}
	linkerRepo := &mockLinkerAccountRepo{}
	linker := NewAccountLinker(linkerRepo, zap.NewNop(), "ChangeMe123!")
	svc := NewStudentService(repo, accounts, linker, validator.New(), zap.NewNop(), syncUsername)
	return svc, repo, accounts, linkerRepo
}

func TestStudentServiceCreate(t *testing.T) {
	svc, repo, _, linkerRepo := newStudentFixture(false)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNo: "S-1001",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Example.edu",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "ada@example.edu", student.Email)
	assert.Len(t, repo.students, 1)

	// Account provisioned against the normalized email.
	require.Equal(t, 1, linkerRepo.creates)
	account := linkerRepo.accounts["ada@example.edu"]
	assert.Equal(t, models.RoleStudent, account.Role)
	require.NotNil(t, account.StudentID)
	assert.Equal(t, student.ID, *account.StudentID)
}

func TestStudentServiceCreateDuplicateStudentNo(t *testing.T) {
	svc, repo, _, _ := newStudentFixture(false)
	repo.students = map[string]models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S-1001", Email: "other@example.edu"},
	}

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNo: "S-1001",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.edu",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "student_no already used", appErr.Message)
}

func TestStudentServiceUpdateProfileKeepsAuthoritativeFields(t *testing.T) {
	svc, repo, _, _ := newStudentFixture(false)
	repo.students = map[string]models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S-1001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu"},
	}

	student, err := svc.UpdateProfile(context.Background(), "stu-1", UpdateStudentProfileRequest{
		Phone:   "555-0101",
		Address: "12 Analytical Row",
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0101", student.Phone)
	assert.Equal(t, "12 Analytical Row", student.Address)
	assert.Equal(t, "S-1001", student.StudentNo)
	assert.Equal(t, "ada@example.edu", student.Email)
}

func TestStudentServiceUpdateSyncsUsername(t *testing.T) {
	svc, repo, accounts, _ := newStudentFixture(true)
	studentID := "stu-1"
	repo.students = map[string]models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S-1001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu"},
	}
	accounts.byStudent["stu-1"] = models.Account{ID: "acc-1", Username: "ada@example.edu", Role: models.RoleStudent, StudentID: &studentID}

	_, err := svc.Update(context.Background(), "stu-1", UpdateStudentRequest{
		StudentNo: "S-1001",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada.lovelace@example.edu",
	})
	require.NoError(t, err)
	require.Len(t, accounts.updates, 1)
	assert.Equal(t, "ada.lovelace@example.edu", accounts.updates[0].Username)
}

func TestStudentServiceUpdateWithoutSyncLeavesUsername(t *testing.T) {
	svc, repo, accounts, _ := newStudentFixture(false)
	studentID := "stu-1"
	repo.students = map[string]models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S-1001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu"},
	}
	accounts.byStudent["stu-1"] = models.Account{ID: "acc-1", Username: "ada@example.edu", Role: models.RoleStudent, StudentID: &studentID}

	_, err := svc.Update(context.Background(), "stu-1", UpdateStudentRequest{
		StudentNo: "S-1001",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada.lovelace@example.edu",
	})
	require.NoError(t, err)
	assert.Empty(t, accounts.updates)
}

func TestStudentServiceDeleteKeepsAccount(t *testing.T) {
	svc, repo, accounts, _ := newStudentFixture(false)
	studentID := "stu-1"
	repo.students = map[string]models.Student{
		"stu-1": {ID: "stu-1", StudentNo: "S-1001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu"},
	}
	accounts.byStudent["stu-1"] = models.Account{ID: "acc-1", Username: "ada@example.edu", Role: models.RoleStudent, StudentID: &studentID}

	require.NoError(t, svc.Delete(context.Background(), "stu-1"))
	assert.Empty(t, repo.students)
	// The orphaned account stays untouched.
	assert.Contains(t, accounts.byStudent, "stu-1")
	assert.Empty(t, accounts.updates)
}

func TestStudentServiceGetMissing(t *testing.T) {
	svc, _, _, _ := newStudentFixture(false)

	_, err := svc.Get(context.Background(), "stu-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
