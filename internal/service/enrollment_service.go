package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/lms-api/internal/models"
	"github.com/campusworks/lms-api/internal/repository"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	FindActive(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	CountActiveByCourse(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Deactivate(ctx context.Context, id string, droppedAt time.Time) error
	ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.EnrollmentDetail, int, error)
	ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.EnrollmentDetail, int, error)
	CoursesForStudent(ctx context.Context, studentID string, page, size int) ([]models.Course, int, error)
	StudentsForCourse(ctx context.Context, courseID string, page, size int) ([]models.Student, int, error)
}

type enrollmentStudentRepository interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// EnrollmentService enforces the enrollment lifecycle: capacity, openness,
// and at most one active enrollment per (student, course) pair. Capacity is a
// best-effort count check; the duplicate-active invariant is ultimately held
// by the database index, which surfaces here as a Conflict.
type EnrollmentService struct {
	repo     enrollmentRepository
	students enrollmentStudentRepository
	courses  enrollmentCourseRepository
	logger   *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, courses enrollmentCourseRepository, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, logger: logger}
}

// Enroll registers the student into the course.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !course.EnrollmentOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment closed")
	}

	active, err := s.repo.ExistsActive(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled")
	}

	if course.Limited() {
		count, err := s.repo.CountActiveByCourse(ctx, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if count >= *course.Capacity {
			return nil, appErrors.Clone(appErrors.ErrConflict, "capacity reached")
		}
	}

	enrollment := &models.Enrollment{StudentID: studentID, CourseID: courseID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("enrollment_id", enrollment.ID))
	return enrollment, nil
}

// Unenroll drops the student's active enrollment in the course. The row is
// deactivated, not deleted.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID string) error {
	enrollment, err := s.repo.FindActive(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if err := s.repo.Deactivate(ctx, enrollment.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}

	s.logger.Info("student unenrolled",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("enrollment_id", enrollment.ID))
	return nil
}

// ListByStudent returns the student's active enrollments.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, nil, err
	}
	enrollments, total, err := s.repo.ListByStudent(ctx, studentID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, paginationFor(page, size, total), nil
}

// ListByCourse returns the course's active enrollments.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string, page, size int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, nil, err
	}
	enrollments, total, err := s.repo.ListByCourse(ctx, courseID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, paginationFor(page, size, total), nil
}

// CoursesForStudent projects the courses the student is actively enrolled in.
func (s *EnrollmentService) CoursesForStudent(ctx context.Context, studentID string, page, size int) ([]models.Course, *models.Pagination, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, nil, err
	}
	courses, total, err := s.repo.CoursesForStudent(ctx, studentID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	return courses, paginationFor(page, size, total), nil
}

// StudentsForCourse projects the students actively enrolled in the course.
func (s *EnrollmentService) StudentsForCourse(ctx context.Context, courseID string, page, size int) ([]models.Student, *models.Pagination, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, nil, err
	}
	students, total, err := s.repo.StudentsForCourse(ctx, courseID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled students")
	}
	return students, paginationFor(page, size, total), nil
}

func (s *EnrollmentService) requireStudent(ctx context.Context, studentID string) error {
	exists, err := s.students.ExistsByID(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func (s *EnrollmentService) requireCourse(ctx context.Context, courseID string) error {
	exists, err := s.courses.ExistsByID(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}
