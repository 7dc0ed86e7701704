package models

import "time"

// Role is a named bundle of permissions, many-to-many with users and
// permissions. Reference data maintained by admin CRUD and consumed
// read-only at authorization time.
type Role struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Permissions []string  `db:"-" json:"permissions,omitempty"`
}

// Permission is an atomic named capability, conventionally
// "resource:action", with no further structure.
type Permission struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateRoleRequest payload for creating a role.
type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

// SetRolePermissionsRequest replaces the permission set of a role.
type SetRolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}

// AssignRoleRequest attaches a role to a user.
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}
