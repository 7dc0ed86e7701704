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

type userAdminRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// UserService provides the admin user management surface. Every
// operation is scoped through the central authorization predicate:
// ordinary admins only ever see and touch users of their own
// institution.
type UserService struct {
	users     userAdminRepository
	rbac      authRBACRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users userAdminRepository, rbac authRBACRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, rbac: rbac, validator: validate, logger: logger}
}

// List returns users visible to the actor.
func (s *UserService) List(ctx context.Context, actor *models.UserSnapshot, filter models.UserFilter) ([]models.User, int, error) {
	if !authz.IsSuperAdmin(actor) {
		if actor.InstitutionID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "")
		}
		filter.InstitutionID = actor.InstitutionID
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Get returns one user if the actor may access it.
func (s *UserService) Get(ctx context.Context, actor *models.UserSnapshot, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !authz.CanAccess(actor, authz.ResourceOwner{InstitutionID: user.InstitutionID, UserID: &user.ID}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return user, nil
}

// Create adds a user inside the actor's scope with an initial role.
func (s *UserService) Create(ctx context.Context, actor *models.UserSnapshot, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	// Ordinary admins create users only inside their own institution.
	if !authz.IsSuperAdmin(actor) {
		if actor.InstitutionID == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "")
		}
		req.InstitutionID = actor.InstitutionID
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	role, err := s.rbac.FindRoleByName(ctx, req.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		InstitutionID: req.InstitutionID,
		Email:         req.Email,
		Username:      req.Username,
		PasswordHash:  hash,
		FullName:      req.FullName,
		IsActive:      true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	if err := s.rbac.AssignRoleToUser(ctx, user.ID, role.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	return user, nil
}

// Update changes mutable fields of a user the actor may access.
func (s *UserService) Update(ctx context.Context, actor *models.UserSnapshot, id int64, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Deactivate soft-deletes a user the actor may access.
func (s *UserService) Deactivate(ctx context.Context, actor *models.UserSnapshot, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	return nil
}
