package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

type snapshotUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type snapshotRBACRepository interface {
	RoleNamesForUser(ctx context.Context, userID int64) ([]string, error)
	PermissionNamesForUser(ctx context.Context, userID int64) ([]string, error)
}

// ContextLoader materializes the per-request user snapshot: the user
// row joined with its role assignments and the permission union those
// roles grant. The snapshot is rebuilt on every call and never cached,
// so role and permission changes take effect immediately.
type ContextLoader struct {
	users snapshotUserRepository
	rbac  snapshotRBACRepository
}

// NewContextLoader constructs a ContextLoader.
func NewContextLoader(users snapshotUserRepository, rbac snapshotRBACRepository) *ContextLoader {
	return &ContextLoader{users: users, rbac: rbac}
}

// Load returns the snapshot for a user id, or nil (not an error) when
// no such user exists. Pure read; no side effects.
func (l *ContextLoader) Load(ctx context.Context, userID int64) (*models.UserSnapshot, error) {
	user, err := l.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	roles, err := l.rbac.RoleNamesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles for user %d: %w", userID, err)
	}

	permissions, err := l.rbac.PermissionNamesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load permissions for user %d: %w", userID, err)
	}

	return &models.UserSnapshot{
		UserID:        user.ID,
		InstitutionID: user.InstitutionID,
		Email:         user.Email,
		Username:      user.Username,
		FullName:      user.FullName,
		IsActive:      user.IsActive,
		IsSuperAdmin:  user.IsSuperAdmin,
		Roles:         roles,
		Permissions:   permissions,
	}, nil
}
