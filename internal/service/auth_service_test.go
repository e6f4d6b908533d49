package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/lms-api/internal/models"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
)

type mockAuthAccountRepo struct {
	accounts map[string]models.Account
}

func (m *mockAuthAccountRepo) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	if a, ok := m.accounts[strings.ToLower(username)]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T, expiry time.Duration) (*AuthService, *mockAuthAccountRepo) {
	t.Helper()
	studentID := "stu-1"
	repo := &mockAuthAccountRepo{accounts: map[string]models.Account{
		"ada@example.edu": {
			ID:           "acc-1",
			Username:     "ada@example.edu",
			PasswordHash: hashPassword(t, "secret"),
			Role:         models.RoleStudent,
			StudentID:    &studentID,
		},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: expiry,
		Issuer:     "lms-api",
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, _ := newAuthFixture(t, 8*time.Hour)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "Ada@Example.edu", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleStudent, resp.Role)
	assert.Equal(t, "acc-1", resp.AccountID)
	require.NotNil(t, resp.StudentID)
	assert.Equal(t, "stu-1", *resp.StudentID)
	assert.Equal(t, int64((8 * time.Hour).Seconds()), resp.ExpiresIn)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, 8*time.Hour)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada@example.edu", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownUsername(t *testing.T) {
	svc, _ := newAuthFixture(t, 8*time.Hour)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost@example.edu", Password: "secret"})
	require.Error(t, err)
	// Same error as a wrong password so the response leaks nothing.
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginMissingFields(t *testing.T) {
	svc, _ := newAuthFixture(t, 8*time.Hour)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada@example.edu"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, repo := newAuthFixture(t, 8*time.Hour)
	account := repo.accounts["ada@example.edu"]

	token, _, err := svc.IssueToken(&account)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "stu-1", claims.StudentID)
	assert.Empty(t, claims.InstructorID)
}

func TestAuthServiceValidateExpiredToken(t *testing.T) {
	svc, repo := newAuthFixture(t, -time.Minute)
	account := repo.accounts["ada@example.edu"]

	token, _, err := svc.IssueToken(&account)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTamperedToken(t *testing.T) {
	svc, repo := newAuthFixture(t, 8*time.Hour)
	account := repo.accounts["ada@example.edu"]

	token, _, err := svc.IssueToken(&account)
	require.NoError(t, err)

	other := NewAuthService(&mockAuthAccountRepo{}, validator.New(), zap.NewNop(), AuthConfig{
		Secret:     "another-secret",
		Expiration: 8 * time.Hour,
		Issuer:     "lms-api",
	})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
