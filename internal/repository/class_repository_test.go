package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassRepositoryTryReserveSeatTakesSeat(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("current_enrollment = current_enrollment + 1")).
		WithArgs("class-1", "studio-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reserved, err := repo.TryReserveSeat(context.Background(), "studio-1", "class-1")
	require.NoError(t, err)
	assert.True(t, reserved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryTryReserveSeatFullClass(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	// The guard current_enrollment < max_capacity rejects the update.
	mock.ExpectExec(regexp.QuoteMeta("current_enrollment < max_capacity")).
		WithArgs("class-1", "studio-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reserved, err := repo.TryReserveSeat(context.Background(), "studio-1", "class-1")
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryReleaseSeatFloorsAtZero(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("GREATEST(current_enrollment - 1, 0)")).
		WithArgs("class-1", "studio-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseSeat(context.Background(), "studio-1", "class-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositorySetEnrollmentCount(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET current_enrollment = $2")).
		WithArgs("class-1", 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetEnrollmentCount(context.Background(), "class-1", 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "studio_id", "branch_id", "room_id", "instructor_id", "name", "description",
		"day_of_week", "start_time", "end_time", "price_ils", "max_capacity",
		"current_enrollment", "is_active", "created_at", "updated_at",
	}).AddRow("class-1", "studio-1", nil, nil, "inst-1", "Ballet", "", 2, "18:00", "19:00", 250.0, 15, 4, true, now, now)
	mock.ExpectQuery("SELECT .+ FROM class_sessions WHERE").
		WithArgs("class-1", "studio-1").
		WillReturnRows(rows)

	class, err := repo.FindByID(context.Background(), "studio-1", "class-1")
	require.NoError(t, err)
	assert.Equal(t, 15, class.MaxCapacity)
	assert.Equal(t, 4, class.CurrentEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryInstructorOwns(t *testing.T) {
	db, mock, cleanup := newClassRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT instructor_id FROM class_sessions")).
		WithArgs("class-1", "studio-1").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id"}).AddRow("inst-1"))

	owns, err := repo.InstructorOwns(context.Background(), "studio-1", "class-1", "inst-1")
	require.NoError(t, err)
	assert.True(t, owns)
	require.NoError(t, mock.ExpectationsWereMet())
}
