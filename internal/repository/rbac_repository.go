package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// RBACRepository provides database access for roles, permissions and
// their assignments.
type RBACRepository struct {
	db *sqlx.DB
}

// NewRBACRepository creates a new instance of RBACRepository.
func NewRBACRepository(db *sqlx.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

// RoleNamesForUser returns the user's role names in assignment order.
func (r *RBACRepository) RoleNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY ur.created_at, r.id`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("role names for user: %w", err)
	}
	return names, nil
}

// PermissionNamesForUser returns the union of permissions granted by
// the user's roles.
func (r *RBACRepository) PermissionNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `SELECT DISTINCT p.name FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("permission names for user: %w", err)
	}
	return names, nil
}

// ListRoles returns all roles with their permission names.
func (r *RBACRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT id, name, description, created_at FROM roles ORDER BY id`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	const permQuery = `SELECT p.name FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`
	for i := range roles {
		var perms []string
		if err := r.db.SelectContext(ctx, &perms, permQuery, roles[i].ID); err != nil {
			return nil, fmt.Errorf("list role permissions: %w", err)
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

// FindRoleByName returns a role by its exact name.
func (r *RBACRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	const query = `SELECT id, name, description, created_at FROM roles WHERE name = $1 LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// CreateRole inserts a new role.
func (r *RBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO roles (name, description, created_at) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, role.Name, role.Description, role.CreatedAt).Scan(&role.ID); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// SetRolePermissions replaces the permission set of a role. Permission
// names that do not exist are ignored by the insert-select.
func (r *RBACRepository) SetRolePermissions(ctx context.Context, roleID int64, permissions []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set role permissions: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}

	if len(permissions) > 0 {
		query, args, err := sqlx.In(`INSERT INTO role_permissions (role_id, permission_id)
			SELECT ?, id FROM permissions WHERE name IN (?)`, roleID, permissions)
		if err != nil {
			return fmt.Errorf("build role permissions insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("insert role permissions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set role permissions: %w", err)
	}
	return nil
}

// ListPermissions returns the permission catalog.
func (r *RBACRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	const query = `SELECT id, name, description, created_at FROM permissions ORDER BY name`
	var permissions []models.Permission
	if err := r.db.SelectContext(ctx, &permissions, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return permissions, nil
}

// AssignRoleToUser attaches a role to a user, ignoring duplicates.
func (r *RBACRepository) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	const query = `INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, role_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, roleID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign role to user: %w", err)
	}
	return nil
}

// RemoveRoleFromUser detaches a role from a user.
func (r *RBACRepository) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	const query = `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("remove role from user: %w", err)
	}
	return nil
}
