package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSnapshotRBAC struct {
	roles       map[int64][]string
	permissions map[int64][]string
}

func (m *mockSnapshotRBAC) RoleNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	return m.roles[userID], nil
}

func (m *mockSnapshotRBAC) PermissionNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	return m.permissions[userID], nil
}

func TestContextLoaderBuildsSnapshot(t *testing.T) {
	user := activeUser(1, "user@example.com", "user", "password123")
	rbac := &mockSnapshotRBAC{
		roles:       map[int64][]string{1: {"admin", "teacher"}},
		permissions: map[int64][]string{1: {"users:read", "users:write"}},
	}
	loader := NewContextLoader(newMockUserRepo(user), rbac)

	snapshot, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(1), snapshot.UserID)
	assert.Equal(t, "user@example.com", snapshot.Email)
	assert.Equal(t, []string{"admin", "teacher"}, snapshot.Roles)
	assert.Equal(t, []string{"users:read", "users:write"}, snapshot.Permissions)
	assert.True(t, snapshot.IsActive)
}

func TestContextLoaderMissingUser(t *testing.T) {
	loader := NewContextLoader(newMockUserRepo(), &mockSnapshotRBAC{})

	snapshot, err := loader.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestContextLoaderNoRoles(t *testing.T) {
	user := activeUser(1, "user@example.com", "user", "password123")
	loader := NewContextLoader(newMockUserRepo(user), &mockSnapshotRBAC{})

	snapshot, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Empty(t, snapshot.Roles)
	assert.Empty(t, snapshot.Permissions)
}
