package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/lms-api/internal/models"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

// PersonKind selects which link field the linker reconciles.
type PersonKind string

const (
	PersonStudent    PersonKind = "STUDENT"
	PersonInstructor PersonKind = "INSTRUCTOR"
)

type linkerAccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
}

// AccountLinker keeps login accounts consistent with person records. Every
// created student or instructor ends up with exactly one account whose
// username is their lower-cased email; provisioning is idempotent, so running
// it again against an already-linked account changes nothing.
type AccountLinker struct {
	repo            linkerAccountRepository
	logger          *zap.Logger
	initialPassword string
}

// NewAccountLinker constructs an AccountLinker.
func NewAccountLinker(repo linkerAccountRepository, logger *zap.Logger, initialPassword string) *AccountLinker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountLinker{repo: repo, logger: logger, initialPassword: initialPassword}
}

// EnsureAccount provisions or reconciles the account for a person record. An
// existing account gets its link field and role aligned with the person,
// except that an ADMIN account keeps its role. A missing account is created
// with the configured initial password.
func (l *AccountLinker) EnsureAccount(ctx context.Context, kind PersonKind, personID, email string) error {
	username := strings.ToLower(strings.TrimSpace(email))

	account, err := l.repo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
		}
		return l.provision(ctx, kind, personID, username)
	}

	dirty := false
	switch kind {
	case PersonStudent:
		if account.StudentID == nil || *account.StudentID != personID {
			account.StudentID = &personID
			dirty = true
		}
		if account.Role != models.RoleAdmin && account.Role != models.RoleStudent {
			account.Role = models.RoleStudent
			dirty = true
		}
	case PersonInstructor:
		if account.InstructorID == nil || *account.InstructorID != personID {
			account.InstructorID = &personID
			dirty = true
		}
		if account.Role != models.RoleAdmin && account.Role != models.RoleInstructor {
			account.Role = models.RoleInstructor
			dirty = true
		}
	default:
		return appErrors.Clone(appErrors.ErrInternal, "unknown person kind")
	}

	if !dirty {
		return nil
	}

	if err := l.repo.Update(ctx, account); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile account")
	}
	l.logger.Info("account relinked",
		zap.String("account_id", account.ID),
		zap.String("kind", string(kind)),
		zap.String("person_id", personID))
	return nil
}

func (l *AccountLinker) provision(ctx context.Context, kind PersonKind, personID, username string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(l.initialPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash initial password")
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: string(hash),
	}
	switch kind {
	case PersonStudent:
		account.Role = models.RoleStudent
		account.StudentID = &personID
	case PersonInstructor:
		account.Role = models.RoleInstructor
		account.InstructorID = &personID
	default:
		return appErrors.Clone(appErrors.ErrInternal, "unknown person kind")
	}

	if err := l.repo.Create(ctx, account); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision account")
	}
	l.logger.Info("account provisioned",
		zap.String("account_id", account.ID),
		zap.String("kind", string(kind)),
		zap.String("person_id", personID))
	return nil
}
