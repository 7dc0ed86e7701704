package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

func (m *mockRBACRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRBACRepo) CreateRole(ctx context.Context, role *models.Role) error {
	role.ID = int64(len(m.roles) + 1)
	m.roles[role.Name] = role
	return nil
}

func (m *mockRBACRepo) SetRolePermissions(ctx context.Context, roleID int64, permissions []string) error {
	for _, r := range m.roles {
		if r.ID == roleID {
			r.Permissions = permissions
		}
	}
	return nil
}

func (m *mockRBACRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return []models.Permission{{ID: 1, Name: "users:read"}, {ID: 2, Name: "users:write"}}, nil
}

func (m *mockRBACRepo) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	kept := m.assignments[userID][:0]
	for _, id := range m.assignments[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.assignments[userID] = kept
	return nil
}

func newTestRBACService(rbac *mockRBACRepo, users *mockUserRepo) *RBACService {
	return NewRBACService(rbac, users, validator.New(), zap.NewNop())
}

func TestCreateRoleWithPermissions(t *testing.T) {
	rbac := newMockRBACRepo()
	svc := newTestRBACService(rbac, newMockUserRepo())

	role, err := svc.CreateRole(context.Background(), models.CreateRoleRequest{
		Name:        "registrar",
		Description: "manages enrollment records",
		Permissions: []string{"users:read"},
	})
	require.NoError(t, err)
	assert.Equal(t, "registrar", role.Name)
	assert.Equal(t, []string{"users:read"}, role.Permissions)
	assert.Contains(t, rbac.roles, "registrar")
}

func TestCreateRoleConflict(t *testing.T) {
	svc := newTestRBACService(newMockRBACRepo("admin"), newMockUserRepo())

	_, err := svc.CreateRole(context.Background(), models.CreateRoleRequest{Name: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSetRolePermissionsReplacesSet(t *testing.T) {
	rbac := newMockRBACRepo("teacher")
	rbac.roles["teacher"].Permissions = []string{"grades:read"}
	svc := newTestRBACService(rbac, newMockUserRepo())

	role, err := svc.SetRolePermissions(context.Background(), "teacher", models.SetRolePermissionsRequest{
		Permissions: []string{"grades:read", "grades:write"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"grades:read", "grades:write"}, role.Permissions)
}

func TestSetRolePermissionsUnknownRole(t *testing.T) {
	svc := newTestRBACService(newMockRBACRepo(), newMockUserRepo())

	_, err := svc.SetRolePermissions(context.Background(), "ghost", models.SetRolePermissionsRequest{Permissions: []string{"x:y"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignRoleWithinScope(t *testing.T) {
	target := activeUser(5, "t@example.com", "t", "password123")
	rbac := newMockRBACRepo("teacher")
	svc := newTestRBACService(rbac, newMockUserRepo(target))

	err := svc.AssignRole(context.Background(), adminSnapshot(1), 5, models.AssignRoleRequest{Role: "teacher"})
	require.NoError(t, err)
	assert.Len(t, rbac.assignments[5], 1)
}

func TestAssignRoleCrossInstitutionForbidden(t *testing.T) {
	target := activeUser(5, "t@example.com", "t", "password123")
	other := int64(2)
	target.InstitutionID = &other
	rbac := newMockRBACRepo("teacher")
	svc := newTestRBACService(rbac, newMockUserRepo(target))

	err := svc.AssignRole(context.Background(), adminSnapshot(1), 5, models.AssignRoleRequest{Role: "teacher"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, rbac.assignments[5])
}

func TestRemoveRole(t *testing.T) {
	target := activeUser(5, "t@example.com", "t", "password123")
	rbac := newMockRBACRepo("teacher")
	rbac.assignments[5] = []int64{rbac.roles["teacher"].ID}
	svc := newTestRBACService(rbac, newMockUserRepo(target))

	err := svc.RemoveRole(context.Background(), adminSnapshot(1), 5, "teacher")
	require.NoError(t, err)
	assert.Empty(t, rbac.assignments[5])
}
