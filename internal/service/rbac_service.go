package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/authz"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type rbacAdminRepository interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	SetRolePermissions(ctx context.Context, roleID int64, permissions []string) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error
}

// RBACService maintains the role and permission reference data. A
// user's effective permissions always follow these tables at the next
// request; nothing is cached.
type RBACService struct {
	rbac      rbacAdminRepository
	users     userAdminRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRBACService constructs an RBACService.
func NewRBACService(rbac rbacAdminRepository, users userAdminRepository, validate *validator.Validate, logger *zap.Logger) *RBACService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RBACService{rbac: rbac, users: users, validator: validate, logger: logger}
}

// ListRoles returns all roles with their permissions.
func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.rbac.ListRoles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return roles, nil
}

// CreateRole adds a role and its initial permission set.
func (s *RBACService) CreateRole(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	if _, err := s.rbac.FindRoleByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "role already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check role")
	}

	role := &models.Role{Name: req.Name, Description: req.Description}
	if err := s.rbac.CreateRole(ctx, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}

	if len(req.Permissions) > 0 {
		if err := s.rbac.SetRolePermissions(ctx, role.ID, req.Permissions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set role permissions")
		}
		role.Permissions = req.Permissions
	}

	return role, nil
}

// SetRolePermissions replaces the permission set of an existing role.
func (s *RBACService) SetRolePermissions(ctx context.Context, roleName string, req models.SetRolePermissionsRequest) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permissions payload")
	}

	role, err := s.rbac.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	if err := s.rbac.SetRolePermissions(ctx, role.ID, req.Permissions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set role permissions")
	}
	role.Permissions = req.Permissions
	return role, nil
}

// ListPermissions returns the permission catalog.
func (s *RBACService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	permissions, err := s.rbac.ListPermissions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permissions")
	}
	return permissions, nil
}

// AssignRole attaches a role to a user the actor may access.
func (s *RBACService) AssignRole(ctx context.Context, actor *models.UserSnapshot, userID int64, req models.AssignRoleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !authz.CanAccess(actor, authz.ResourceOwner{InstitutionID: user.InstitutionID}) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	role, err := s.rbac.FindRoleByName(ctx, req.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	if err := s.rbac.AssignRoleToUser(ctx, user.ID, role.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}
	return nil
}

// RemoveRole detaches a role from a user the actor may access.
func (s *RBACService) RemoveRole(ctx context.Context, actor *models.UserSnapshot, userID int64, roleName string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !authz.CanAccess(actor, authz.ResourceOwner{InstitutionID: user.InstitutionID}) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	role, err := s.rbac.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	if err := s.rbac.RemoveRoleFromUser(ctx, user.ID, role.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove role")
	}
	return nil
}
