package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/lms-api/internal/models"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	ExistsByStaffNo(ctx context.Context, staffNo, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	Delete(ctx context.Context, id string) error
}

type instructorCourseRepository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type instructorAssignmentRepository interface {
	Assign(ctx context.Context, instructorID, courseID string) error
	Unassign(ctx context.Context, instructorID, courseID string) error
	ListCoursesByInstructor(ctx context.Context, instructorID string, page, size int) ([]models.Course, int, error)
}

// CreateInstructorRequest holds payload for registering instructors.
type CreateInstructorRequest struct {
	StaffNo   string `json:"staff_no" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

// UpdateInstructorRequest holds payload for updating instructors.
type UpdateInstructorRequest struct {
	StaffNo   string `json:"staff_no" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

// InstructorService handles instructor use-cases including the course
// teaching assignments.
type InstructorService struct {
	repo        instructorRepository
	courses     instructorCourseRepository
	assignments instructorAssignmentRepository
	linker      *AccountLinker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewInstructorService constructs the instructor service.
func NewInstructorService(repo instructorRepository, courses instructorCourseRepository, assignments instructorAssignmentRepository, linker *AccountLinker, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, courses: courses, assignments: assignments, linker: linker, validator: validate, logger: logger}
}

// List returns instructors matching the filter with pagination metadata.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error) {
	instructors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one instructor.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// Create registers a new instructor and provisions its login account.
func (s *InstructorService) Create(ctx context.Context, req CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	if err := s.checkUniqueness(ctx, req.StaffNo, req.Email, ""); err != nil {
		return nil, err
	}

	instructor := &models.Instructor{
		StaffNo:   req.StaffNo,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
	}
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}

	if err := s.linker.EnsureAccount(ctx, PersonInstructor, instructor.ID, instructor.Email); err != nil {
		s.logger.Error("account provisioning failed", zap.String("instructor_id", instructor.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("instructor created", zap.String("instructor_id", instructor.ID), zap.String("staff_no", instructor.StaffNo))
	return instructor, nil
}

// Update replaces an instructor's attributes.
func (s *InstructorService) Update(ctx context.Context, id string, req UpdateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	instructor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkUniqueness(ctx, req.StaffNo, req.Email, id); err != nil {
		return nil, err
	}

	instructor.StaffNo = req.StaffNo
	instructor.FirstName = req.FirstName
	instructor.LastName = req.LastName
	instructor.Email = strings.ToLower(strings.TrimSpace(req.Email))
	instructor.Phone = req.Phone

	if err := s.repo.Update(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instructor")
	}
	return instructor, nil
}

// Delete removes an instructor record. The linked account is left in place.
func (s *InstructorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete instructor")
	}
	s.logger.Info("instructor deleted", zap.String("instructor_id", id))
	return nil
}

// AssignToCourse adds the instructor to a course's teaching set. Assigning
// twice is a no-op.
func (s *InstructorService) AssignToCourse(ctx context.Context, instructorID, courseID string) error {
	if _, err := s.Get(ctx, instructorID); err != nil {
		return err
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return err
	}
	if err := s.assignments.Assign(ctx, instructorID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign instructor")
	}
	return nil
}

// UnassignFromCourse removes the instructor from a course's teaching set.
// Unassigning a missing membership is a no-op.
func (s *InstructorService) UnassignFromCourse(ctx context.Context, instructorID, courseID string) error {
	if _, err := s.Get(ctx, instructorID); err != nil {
		return err
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return err
	}
	if err := s.assignments.Unassign(ctx, instructorID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign instructor")
	}
	return nil
}

// ListAssignedCourses returns the courses the instructor teaches.
func (s *InstructorService) ListAssignedCourses(ctx context.Context, instructorID string, page, size int) ([]models.Course, *models.Pagination, error) {
	if _, err := s.Get(ctx, instructorID); err != nil {
		return nil, nil, err
	}
	courses, total, err := s.assignments.ListCoursesByInstructor(ctx, instructorID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned courses")
	}
	return courses, paginationFor(page, size, total), nil
}

func (s *InstructorService) requireCourse(ctx context.Context, courseID string) error {
	exists, err := s.courses.ExistsByID(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}

func (s *InstructorService) checkUniqueness(ctx context.Context, staffNo, email, excludeID string) error {
	exists, err := s.repo.ExistsByStaffNo(ctx, staffNo, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate staff_no")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "staff_no already used")
	}

	exists, err = s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}
