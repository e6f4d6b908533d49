package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/lms-api/internal/models"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

type mockGradeRepo struct {
	grades map[string]models.Grade
	all    []models.GradeDetail
}

func (m *mockGradeRepo) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	for _, g := range m.grades {
		if g.EnrollmentID == enrollmentID {
			grade := g
			return &grade, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	if m.grades == nil {
		m.grades = make(map[string]models.Grade)
	}
	if grade.ID == "" {
		grade.ID = fmt.Sprintf("grd-%d", len(m.grades)+1)
	}
	m.grades[grade.ID] = *grade
	return nil
}

func (m *mockGradeRepo) UpdateScore(ctx context.Context, id string, score int) error {
	g, ok := m.grades[id]
	if !ok {
		return sql.ErrNoRows
	}
	g.Score = score
	m.grades[id] = g
	return nil
}

func (m *mockGradeRepo) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.GradeDetail, int, error) {
	return m.all, len(m.all), nil
}

func (m *mockGradeRepo) ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.GradeDetail, int, error) {
	return m.all, len(m.all), nil
}

func (m *mockGradeRepo) ListAllByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	return m.all, nil
}

type mockActiveEnrollmentRepo struct {
	active map[string]string // studentID|courseID -> enrollmentID
}

func (m *mockActiveEnrollmentRepo) FindActive(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if id, ok := m.active[studentID+"|"+courseID]; ok {
		return &models.Enrollment{ID: id, StudentID: studentID, CourseID: courseID, Active: true}, nil
	}
	return nil, sql.ErrNoRows
}

type mockAssignmentRepo struct {
	assigned map[string]bool // instructorID|courseID
}

func (m *mockAssignmentRepo) Exists(ctx context.Context, instructorID, courseID string) (bool, error) {
	return m.assigned[instructorID+"|"+courseID], nil
}

type mockSummaryCache struct {
	store   map[string][]byte
	deleted []string
	sets    int
}

func (m *mockSummaryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, ok := m.store[key]
	if !ok {
		return false, nil
	}
	summary, ok := dest.(*models.GradeSummary)
	if !ok {
		return false, nil
	}
	_ = payload
	*summary = models.GradeSummary{StudentID: "cached", GradedCourses: 99, GPA: 9.99}
	return true, nil
}

func (m *mockSummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = []byte("set")
	m.sets++
	return nil
}

func (m *mockSummaryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.store, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

type gradeFixture struct {
	svc         *GradeService
	repo        *mockGradeRepo
	enrollments *mockActiveEnrollmentRepo
	assignments *mockAssignmentRepo
	cache       *mockSummaryCache
}

func newGradeFixture() *gradeFixture {
	repo := &mockGradeRepo{}
	enrollments := &mockActiveEnrollmentRepo{active: map[string]string{"stu-1|crs-1": "enr-1"}}
	assignments := &mockAssignmentRepo{assigned: map[string]bool{"ins-1|crs-1": true}}
	students := &mockExistsRepo{ids: map[string]bool{"stu-1": true}}
	courses := &mockExistsRepo{ids: map[string]bool{"crs-1": true}}
	cache := &mockSummaryCache{}
	svc := NewGradeService(repo, enrollments, assignments, students, courses, cache, time.Minute, validator.New(), zap.NewNop())
	return &gradeFixture{svc: svc, repo: repo, enrollments: enrollments, assignments: assignments, cache: cache}
}

func TestGradeServiceUpsertCreates(t *testing.T) {
	f := newGradeFixture()

	detail, err := f.svc.Upsert(context.Background(), "ins-1", "stu-1", "crs-1", UpsertGradeRequest{Score: 87})
	require.NoError(t, err)
	assert.Equal(t, 87, detail.Score)
	assert.Equal(t, "A-", detail.Letter)
	assert.Equal(t, 3.7, detail.GradePoint)
	assert.Len(t, f.repo.grades, 1)
}

func TestGradeServiceUpsertOverwrites(t *testing.T) {
	f := newGradeFixture()

	_, err := f.svc.Upsert(context.Background(), "ins-1", "stu-1", "crs-1", UpsertGradeRequest{Score: 60})
	require.NoError(t, err)
	detail, err := f.svc.Upsert(context.Background(), "ins-1", "stu-1", "crs-1", UpsertGradeRequest{Score: 92})
	require.NoError(t, err)

	assert.Equal(t, 92, detail.Score)
	assert.Equal(t, "A", detail.Letter)
	require.Len(t, f.repo.grades, 1)
	for _, g := range f.repo.grades {
		assert.Equal(t, 92, g.Score)
	}
}

func TestGradeServiceUpsertScoreOutOfRange(t *testing.T) {
	f := newGradeFixture()

	_, err := f.svc.Upsert(context.Background(), "ins-1", "stu-1", "crs-1", UpsertGradeRequest{Score: 101})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.grades)
}

func TestGradeServiceUpsertUnassignedInstructor(t *testing.T) {
	f := newGradeFixture()

	_, err := f.svc.Upsert(context.Background(), "ins-2", "stu-1", "crs-1", UpsertGradeRequest{Score: 80})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "not assigned to course", appErr.Message)
}

func TestGradeServiceUpsertNotEnrolled(t *testing.T) {
	f := newGradeFixture()
	f.enrollments.active = map[string]string{}

	_, err := f.svc.Upsert(context.Background(), "ins-1", "stu-1", "crs-1", UpsertGradeRequest{Score: 80})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "student not actively enrolled", appErr.Message)
}

func TestGradeServiceUpsertInvalidatesSummary(t *testing.T) {
	f := newGradeFixture()
	f.cache.store = map[string][]byte{"grades:summary:stu-1": []byte("stale")}

	_, err := f.svc.Upsert(context.Background(), "ins-1", "stu-1", "crs-1", UpsertGradeRequest{Score: 70})
	require.NoError(t, err)
	assert.Contains(t, f.cache.deleted, "grades:summary:stu-1")
}

func TestGradeServiceSummary(t *testing.T) {
	f := newGradeFixture()
	f.repo.all = []models.GradeDetail{
		{StudentID: "stu-1", Score: 90},
		{StudentID: "stu-1", Score: 80},
	}

	summary, err := f.svc.SummaryByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GradedCourses)
	// (4.0 + 3.3) / 2 rounded to 2 decimals
	assert.Equal(t, 3.65, summary.GPA)
	assert.Equal(t, 1, f.cache.sets)
}

func TestGradeServiceSummaryNoGrades(t *testing.T) {
	f := newGradeFixture()

	summary, err := f.svc.SummaryByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GradedCourses)
	assert.Equal(t, 0.0, summary.GPA)
}

func TestGradeServiceSummaryCacheHit(t *testing.T) {
	f := newGradeFixture()
	f.cache.store = map[string][]byte{"grades:summary:stu-1": []byte("cached")}

	summary, err := f.svc.SummaryByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 99, summary.GradedCourses)
	assert.Equal(t, 0, f.cache.sets)
}

func TestGradeServiceListByStudentDerives(t *testing.T) {
	f := newGradeFixture()
	f.repo.all = []models.GradeDetail{{StudentID: "stu-1", Score: 55}}

	grades, pagination, err := f.svc.ListByStudent(context.Background(), "stu-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "C-", grades[0].Letter)
	assert.Equal(t, 1.7, grades[0].GradePoint)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestGradeServiceTranscriptCSV(t *testing.T) {
	f := newGradeFixture()
	f.repo.all = []models.GradeDetail{
		{StudentID: "stu-1", CourseCode: "CS101", CourseTitle: "Intro to Computing", Score: 90},
	}

	payload, contentType, err := f.svc.TranscriptByStudent(context.Background(), "stu-1", TranscriptCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Course Code,Course Title,Score,Letter,Grade Point", lines[0])
	assert.Equal(t, "CS101,Intro to Computing,90,A,4.0", lines[1])
}

func TestGradeServiceTranscriptPDF(t *testing.T) {
	f := newGradeFixture()

	payload, contentType, err := f.svc.TranscriptByStudent(context.Background(), "stu-1", TranscriptPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)
}

func TestGradeServiceTranscriptUnknownFormat(t *testing.T) {
	f := newGradeFixture()

	_, _, err := f.svc.TranscriptByStudent(context.Background(), "stu-1", TranscriptFormat("xml"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
