package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

func TestCreateLoginActivity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery("INSERT INTO login_activity").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	userID := int64(1)
	activity := &models.LoginActivity{UserID: &userID, IPAddress: "10.0.0.1", UserAgent: "test", IsSuccessful: true}
	err := repo.Create(context.Background(), activity)
	require.NoError(t, err)
	assert.Equal(t, int64(11), activity.ID)
	assert.False(t, activity.LoggedInAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLoginActivityAnonymousFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery("INSERT INTO login_activity").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	reason := models.LoginFailureInvalidCredentials
	activity := &models.LoginActivity{IPAddress: "10.0.0.2", UserAgent: "test", IsSuccessful: false, FailureReason: &reason}
	err := repo.Create(context.Background(), activity)
	require.NoError(t, err)
	assert.Nil(t, activity.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStampLogout(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE login_activity SET logged_out_at = $2")).
		WithArgs(int64(1), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.StampLogout(context.Background(), 1, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLoginActivityDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	userID := int64(1)
	rows := sqlmock.NewRows([]string{"id", "user_id", "ip_address", "user_agent", "is_successful", "failure_reason", "logged_in_at", "logged_out_at"}).
		AddRow(int64(1), userID, "10.0.0.1", "test", true, nil, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM login_activity WHERE 1=1 ORDER BY logged_in_at DESC LIMIT 50 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM login_activity WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLoginActivityInstitutionFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("user_id IN (SELECT id FROM users WHERE institution_id = $1)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "ip_address", "user_agent", "is_successful", "failure_reason", "logged_in_at", "logged_out_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	inst := int64(1)
	_, total, err := repo.List(context.Background(), models.ActivityFilter{InstitutionID: &inst})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLoginActivityTimeWindow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	from := time.Now().Add(-time.Hour)
	to := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("logged_in_at >= $1 AND logged_in_at < $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "ip_address", "user_agent", "is_successful", "failure_reason", "logged_in_at", "logged_out_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ActivityFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
