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

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id int64) error {
	if u, ok := m.byID[id]; ok {
		u.IsActive = false
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	var out []models.User
	for _, u := range m.byID {
		if filter.InstitutionID != nil {
			if u.InstitutionID == nil || *u.InstitutionID != *filter.InstitutionID {
				continue
			}
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func adminSnapshot(institutionID int64) *models.UserSnapshot {
	return &models.UserSnapshot{
		UserID:        900,
		InstitutionID: &institutionID,
		IsActive:      true,
		Roles:         []string{"admin"},
	}
}

func superSnapshot() *models.UserSnapshot {
	return &models.UserSnapshot{UserID: 901, IsActive: true, IsSuperAdmin: true}
}

func newTestUserService(users *mockUserRepo, rbac *mockRBACRepo) *UserService {
	return NewUserService(users, rbac, validator.New(), zap.NewNop())
}

func TestUserListScopedToInstitution(t *testing.T) {
	inside := activeUser(1, "a@example.com", "a", "password123")
	outside := activeUser(2, "b@example.com", "b", "password123")
	other := int64(2)
	outside.InstitutionID = &other
	users := newMockUserRepo(inside, outside)
	svc := newTestUserService(users, newMockRBACRepo())

	list, total, err := svc.List(context.Background(), adminSnapshot(1), models.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)

	// The actor's institution wins over any requested filter.
	_, _, err = svc.List(context.Background(), adminSnapshot(1), models.UserFilter{InstitutionID: &other})
	require.NoError(t, err)
	require.NotNil(t, users.lastFilter.InstitutionID)
	assert.Equal(t, int64(1), *users.lastFilter.InstitutionID)
}

func TestUserListSuperAdminUnscoped(t *testing.T) {
	inside := activeUser(1, "a@example.com", "a", "password123")
	outside := activeUser(2, "b@example.com", "b", "password123")
	other := int64(2)
	outside.InstitutionID = &other
	svc := newTestUserService(newMockUserRepo(inside, outside), newMockRBACRepo())

	_, total, err := svc.List(context.Background(), superSnapshot(), models.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestUserGetCrossInstitutionForbidden(t *testing.T) {
	target := activeUser(5, "t@example.com", "t", "password123")
	other := int64(2)
	target.InstitutionID = &other
	svc := newTestUserService(newMockUserRepo(target), newMockRBACRepo())

	_, err := svc.Get(context.Background(), adminSnapshot(1), 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserGetNotFound(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), newMockRBACRepo())

	_, err := svc.Get(context.Background(), adminSnapshot(1), 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserCreateForcesActorInstitution(t *testing.T) {
	users := newMockUserRepo()
	rbac := newMockRBACRepo("teacher")
	svc := newTestUserService(users, rbac)

	other := int64(2)
	created, err := svc.Create(context.Background(), adminSnapshot(1), models.CreateUserRequest{
		InstitutionID: &other,
		Email:         "new@example.com",
		Username:      "newuser",
		Password:      "password123",
		FullName:      "New User",
		Role:          "teacher",
	})
	require.NoError(t, err)
	require.NotNil(t, created.InstitutionID)
	assert.Equal(t, int64(1), *created.InstitutionID)
	assert.True(t, created.IsActive)
	assert.Len(t, rbac.assignments[created.ID], 1)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	existing := activeUser(1, "taken@example.com", "taken", "password123")
	svc := newTestUserService(newMockUserRepo(existing), newMockRBACRepo("teacher"))

	_, err := svc.Create(context.Background(), adminSnapshot(1), models.CreateUserRequest{
		Email:    "taken@example.com",
		Username: "newuser",
		Password: "password123",
		FullName: "New User",
		Role:     "teacher",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserUpdatePatchesFields(t *testing.T) {
	target := activeUser(5, "t@example.com", "t", "password123")
	users := newMockUserRepo(target)
	svc := newTestUserService(users, newMockRBACRepo())

	newName := "Renamed"
	inactive := false
	updated, err := svc.Update(context.Background(), adminSnapshot(1), 5, models.UpdateUserRequest{FullName: &newName, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "t@example.com", updated.Email)
}

func TestUserDeactivate(t *testing.T) {
	target := activeUser(5, "t@example.com", "t", "password123")
	users := newMockUserRepo(target)
	svc := newTestUserService(users, newMockRBACRepo())

	require.NoError(t, svc.Deactivate(context.Background(), adminSnapshot(1), 5))
	assert.False(t, users.byID[5].IsActive)
}
