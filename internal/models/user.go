package models

import "time"

// Role name constants. Role membership is checked by exact,
// case-sensitive string match.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleParent     = "parent"
)

// User represents an application user stored in the users table.
// InstitutionID is null only for platform-level super admins.
type User struct {
	ID            int64      `db:"id" json:"id"`
	InstitutionID *int64     `db:"institution_id" json:"institution_id,omitempty"`
	Email         string     `db:"email" json:"email"`
	Username      string     `db:"username" json:"username"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	FullName      string     `db:"full_name" json:"full_name"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	IsSuperAdmin  bool       `db:"is_super_admin" json:"is_super_admin"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	InstitutionID *int64
	Role          string
	Active        *bool
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// CreateUserRequest payload for admin user creation.
type CreateUserRequest struct {
	InstitutionID *int64 `json:"institution_id"`
	Email         string `json:"email" validate:"required,email"`
	Username      string `json:"username" validate:"required,min=3,max=64"`
	Password      string `json:"password" validate:"required,min=8"`
	FullName      string `json:"full_name" validate:"required,max=128"`
	Role          string `json:"role" validate:"required"`
}

// UpdateUserRequest payload for admin user updates.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=128"`
	IsActive *bool   `json:"is_active"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
