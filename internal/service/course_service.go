package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/lms-api/internal/models"
	"github.com/campusworks/lms-api/internal/repository"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest holds payload for creating courses.
type CreateCourseRequest struct {
	Code           string `json:"code" validate:"required"`
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	LectureHall    string `json:"lecture_hall"`
	LectureDay     string `json:"lecture_day"`
	LectureTime    string `json:"lecture_time"`
	Capacity       *int   `json:"capacity" validate:"omitempty,min=0"`
	EnrollmentOpen *bool  `json:"enrollment_open"`
}

// UpdateCourseRequest holds payload for updating courses.
type UpdateCourseRequest struct {
	Code           string `json:"code" validate:"required"`
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	LectureHall    string `json:"lecture_hall"`
	LectureDay     string `json:"lecture_day"`
	LectureTime    string `json:"lecture_time"`
	Capacity       *int   `json:"capacity" validate:"omitempty,min=0"`
	EnrollmentOpen bool   `json:"enrollment_open"`
}

// CourseService handles course use-cases.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses matching the filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course. Enrollment is open unless the payload says
// otherwise.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}

	open := true
	if req.EnrollmentOpen != nil {
		open = *req.EnrollmentOpen
	}
	course := &models.Course{
		Code:           req.Code,
		Title:          req.Title,
		Description:    req.Description,
		LectureHall:    req.LectureHall,
		LectureDay:     req.LectureDay,
		LectureTime:    req.LectureTime,
		Capacity:       req.Capacity,
		EnrollmentOpen: open,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update replaces a course's attributes.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}

	course.Code = req.Code
	course.Title = req.Title
	course.Description = req.Description
	course.LectureHall = req.LectureHall
	course.LectureDay = req.LectureDay
	course.LectureTime = req.LectureTime
	course.Capacity = req.Capacity
	course.EnrollmentOpen = req.EnrollmentOpen

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
