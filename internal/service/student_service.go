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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByStudentNo(ctx context.Context, studentNo, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentAccountRepository interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	StudentNo string `json:"student_no" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateStudentRequest holds payload for the admin update of authoritative
// student fields.
type UpdateStudentRequest struct {
	StudentNo string `json:"student_no" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateStudentProfileRequest holds the student-editable subset.
type UpdateStudentProfileRequest struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// StudentService handles student use-cases. Account provisioning runs after
// create through the linker; deleting a student leaves its account orphaned.
type StudentService struct {
	repo         studentRepository
	accounts     studentAccountRepository
	linker       *AccountLinker
	validator    *validator.Validate
	logger       *zap.Logger
	syncUsername bool
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, accounts studentAccountRepository, linker *AccountLinker, validate *validator.Validate, logger *zap.Logger, syncUsername bool) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, accounts: accounts, linker: linker, validator: validate, logger: logger, syncUsername: syncUsername}
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student and provisions its login account.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if err := s.checkUniqueness(ctx, req.StudentNo, req.Email, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentNo: req.StudentNo,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		Address:   req.Address,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if err := s.linker.EnsureAccount(ctx, PersonStudent, student.ID, student.Email); err != nil {
		s.logger.Error("account provisioning failed", zap.String("student_id", student.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("student_no", student.StudentNo))
	return student, nil
}

// Update replaces the authoritative student fields. When username sync is
// enabled an email change propagates to the linked account's username.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkUniqueness(ctx, req.StudentNo, req.Email, id); err != nil {
		return nil, err
	}

	previousEmail := student.Email
	student.StudentNo = req.StudentNo
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = strings.ToLower(strings.TrimSpace(req.Email))
	student.Phone = req.Phone
	student.Address = req.Address

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	if s.syncUsername && student.Email != previousEmail {
		s.propagateUsername(ctx, student.ID, student.Email)
	}
	return student, nil
}

// UpdateProfile mutates the student-editable fields only.
func (s *StudentService) UpdateProfile(ctx context.Context, id string, req UpdateStudentProfileRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student.Phone = req.Phone
	student.Address = req.Address
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return student, nil
}

// Delete removes a student record. The linked account is left in place.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

func (s *StudentService) checkUniqueness(ctx context.Context, studentNo, email, excludeID string) error {
	exists, err := s.repo.ExistsByStudentNo(ctx, studentNo, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student_no")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "student_no already used")
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

func (s *StudentService) propagateUsername(ctx context.Context, studentID, email string) {
	account, err := s.accounts.FindByStudentID(ctx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("username sync lookup failed", zap.String("student_id", studentID), zap.Error(err))
		}
		return
	}
	if account.Username == email {
		return
	}
	account.Username = email
	if err := s.accounts.Update(ctx, account); err != nil {
		s.logger.Warn("username sync failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}
