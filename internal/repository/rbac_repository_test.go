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

func TestRoleNamesForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	rows := sqlmock.NewRows([]string{"name"}).AddRow("admin").AddRow("teacher")
	mock.ExpectQuery("SELECT r.name FROM roles r").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	names, err := repo.RoleNamesForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "teacher"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionNamesForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	rows := sqlmock.NewRows([]string{"name"}).AddRow("users:read").AddRow("users:write")
	mock.ExpectQuery("SELECT DISTINCT p.name FROM permissions p").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	names, err := repo.PermissionNamesForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"users:read", "users:write"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRolesWithPermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	now := time.Now()
	roleRows := sqlmock.NewRows([]string{"id", "name", "description", "created_at"}).
		AddRow(int64(1), "admin", "institution admin", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, created_at FROM roles ORDER BY id")).
		WillReturnRows(roleRows)
	mock.ExpectQuery("SELECT p.name FROM permissions p").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("users:read"))

	roles, err := repo.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, []string{"users:read"}, roles[0].Permissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRoleByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_at"}).
		AddRow(int64(2), "teacher", "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM roles WHERE name = $1 LIMIT 1")).
		WithArgs("teacher").
		WillReturnRows(rows)

	role, err := repo.FindRoleByName(context.Background(), "teacher")
	require.NoError(t, err)
	assert.Equal(t, int64(2), role.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	mock.ExpectQuery("INSERT INTO roles").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	role := &models.Role{Name: "registrar"}
	err := repo.CreateRole(context.Background(), role)
	require.NoError(t, err)
	assert.Equal(t, int64(9), role.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRolePermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM role_permissions WHERE role_id = $1")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO role_permissions").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.SetRolePermissions(context.Background(), 2, []string{"grades:read", "grades:write"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRolePermissionsEmptyClearsAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM role_permissions").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.SetRolePermissions(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoleToUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(int64(1), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AssignRoleToUser(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveRoleFromUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RemoveRoleFromUser(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
