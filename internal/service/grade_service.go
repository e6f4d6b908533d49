package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/lms-api/internal/models"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
	"github.com/campusworks/lms-api/pkg/export"
)

type gradeRepository interface {
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	UpdateScore(ctx context.Context, id string, score int) error
	ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.GradeDetail, int, error)
	ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.GradeDetail, int, error)
	ListAllByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
}

type gradeEnrollmentRepository interface {
	FindActive(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type gradeAssignmentRepository interface {
	Exists(ctx context.Context, instructorID, courseID string) (bool, error)
}

type gradeStudentRepository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type gradeCourseRepository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// UpsertGradeRequest holds payload for recording a score.
type UpsertGradeRequest struct {
	Score int `json:"score" validate:"min=0,max=100"`
}

// TranscriptFormat selects the transcript rendering.
type TranscriptFormat string

const (
	TranscriptCSV TranscriptFormat = "csv"
	TranscriptPDF TranscriptFormat = "pdf"
)

// GradeService records scores and derives letters, grade points and GPA.
// A grade exists per enrollment; repeated upserts overwrite the score.
type GradeService struct {
	repo        gradeRepository
	enrollments gradeEnrollmentRepository
	assignments gradeAssignmentRepository
	students    gradeStudentRepository
	courses     gradeCourseRepository
	cache       summaryCache
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepository, enrollments gradeEnrollmentRepository, assignments gradeAssignmentRepository, students gradeStudentRepository, courses gradeCourseRepository, cache summaryCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		repo:        repo,
		enrollments: enrollments,
		assignments: assignments,
		students:    students,
		courses:     courses,
		cache:       cache,
		cacheTTL:    cacheTTL,
		validator:   validate,
		logger:      logger,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
	}
}

// Upsert records the score for a student's active enrollment in a course.
// The instructor must be assigned to the course. A second upsert for the
// same enrollment overwrites the stored score.
func (s *GradeService) Upsert(ctx context.Context, instructorID, studentID, courseID string, req UpsertGradeRequest) (*models.GradeDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "score must be between 0 and 100")
	}

	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}

	assigned, err := s.assignments.Exists(ctx, instructorID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to course")
	}

	enrollment, err := s.enrollments.FindActive(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student not actively enrolled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	grade, err := s.repo.FindByEnrollmentID(ctx, enrollment.ID)
	switch {
	case err == nil:
		if err := s.repo.UpdateScore(ctx, grade.ID, req.Score); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
		}
		grade.Score = req.Score
	case errors.Is(err, sql.ErrNoRows):
		grade = &models.Grade{EnrollmentID: enrollment.ID, Score: req.Score}
		if err := s.repo.Create(ctx, grade); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	if err := s.cache.Delete(ctx, summaryCacheKey(studentID)); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}

	s.logger.Info("grade recorded",
		zap.String("instructor_id", instructorID),
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("score", req.Score))

	detail := &models.GradeDetail{
		ID:        grade.ID,
		StudentID: studentID,
		CourseID:  courseID,
		Score:     grade.Score,
	}
	detail.Derive()
	return detail, nil
}

// ListByStudent returns the student's grades with derived letters and points.
func (s *GradeService) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.GradeDetail, *models.Pagination, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, nil, err
	}
	grades, total, err := s.repo.ListByStudent(ctx, studentID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	deriveAll(grades)
	return grades, paginationFor(page, size, total), nil
}

// ListByCourse returns the course's grades with derived letters and points.
func (s *GradeService) ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.GradeDetail, *models.Pagination, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, nil, err
	}
	grades, total, err := s.repo.ListByCourse(ctx, courseID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	deriveAll(grades)
	return grades, paginationFor(page, size, total), nil
}

// SummaryByStudent computes the student's GPA as the unweighted mean of
// grade points, rounded to two decimals. No grades yields zero values, not
// an error.
func (s *GradeService) SummaryByStudent(ctx context.Context, studentID string) (*models.GradeSummary, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}

	key := summaryCacheKey(studentID)
	var cached models.GradeSummary
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("summary cache read failed", zap.String("student_id", studentID), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	grades, err := s.repo.ListAllByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	summary := &models.GradeSummary{StudentID: studentID}
	if len(grades) > 0 {
		var sum float64
		for _, g := range grades {
			sum += models.GradePointFor(g.Score)
		}
		summary.GradedCourses = len(grades)
		summary.GPA = math.Round(sum/float64(len(grades))*100) / 100
	}

	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("student_id", studentID), zap.Error(err))
	}
	return summary, nil
}

// TranscriptByStudent renders the student's graded courses as CSV or PDF.
func (s *GradeService) TranscriptByStudent(ctx context.Context, studentID string, format TranscriptFormat) ([]byte, string, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, "", err
	}

	grades, err := s.repo.ListAllByStudent(ctx, studentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	deriveAll(grades)

	dataset := export.Dataset{
		Headers: []string{"Course Code", "Course Title", "Score", "Letter", "Grade Point"},
	}
	for _, g := range grades {
		dataset.Rows = append(dataset.Rows, []string{
			g.CourseCode,
			g.CourseTitle,
			strconv.Itoa(g.Score),
			g.Letter,
			fmt.Sprintf("%.1f", g.GradePoint),
		})
	}

	switch format {
	case TranscriptCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return payload, "text/csv", nil
	case TranscriptPDF:
		payload, err := s.pdf.Render(dataset, "Academic Transcript")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported transcript format")
	}
}

func (s *GradeService) requireStudent(ctx context.Context, studentID string) error {
	exists, err := s.students.ExistsByID(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func (s *GradeService) requireCourse(ctx context.Context, courseID string) error {
	exists, err := s.courses.ExistsByID(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}

func deriveAll(grades []models.GradeDetail) {
	for i := range grades {
		grades[i].Derive()
	}
}

func summaryCacheKey(studentID string) string {
	return "grades:summary:" + studentID
}
