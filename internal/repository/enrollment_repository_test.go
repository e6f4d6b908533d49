package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/lms-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1"}
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.True(t, enrollment.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicateActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1"})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND active = TRUE")).
		WithArgs("stu-1", "crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND active = TRUE")).
		WithArgs("stu-2", "crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsActive(context.Background(), "stu-2", "crs-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountActiveByCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND active = TRUE")).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := repo.CountActiveByCourse(context.Background(), "crs-1")
	require.NoError(t, err)
	require.Equal(t, 17, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	droppedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET active = FALSE, dropped_at = $2 WHERE id = $1 AND active = TRUE")).
		WithArgs("enr-1", droppedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "enr-1", droppedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	droppedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET active = FALSE, dropped_at = $2 WHERE id = $1 AND active = TRUE")).
		WithArgs("enr-missing", droppedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "enr-missing", droppedAt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "active", "enrolled_at", "dropped_at", "student_no", "student_name", "course_code", "course_title"}).
		AddRow("enr-1", "stu-1", "crs-1", true, time.Now(), nil, "S-1001", "Ada Lovelace", "CS101", "Intro to Computing")
	mock.ExpectQuery("SELECT e.id, e.student_id, e.course_id").
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND active = TRUE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.ListByStudent(context.Background(), "stu-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "CS101", enrollments[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}
