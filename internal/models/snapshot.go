package models

// UserSnapshot is the immutable, per-request view of an authenticated
// principal: identity, status, assigned roles in assignment order, and
// the permission union derived from those roles. It is rebuilt from the
// database on every authenticated request so role or permission changes
// take effect immediately, and discarded when the request ends.
type UserSnapshot struct {
	UserID        int64    `json:"user_id"`
	InstitutionID *int64   `json:"institution_id,omitempty"`
	Email         string   `json:"email"`
	Username      string   `json:"username"`
	FullName      string   `json:"full_name"`
	IsActive      bool     `json:"is_active"`
	IsSuperAdmin  bool     `json:"is_super_admin"`
	Roles         []string `json:"roles"`
	Permissions   []string `json:"permissions"`
}

// HasRole reports whether any of the given role names is assigned.
// Matching is exact and case-sensitive.
func (s *UserSnapshot) HasRole(roles ...string) bool {
	if s == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range s.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasPermission reports whether any of the given permission names is in
// the derived permission union.
func (s *UserSnapshot) HasPermission(permissions ...string) bool {
	if s == nil {
		return false
	}
	for _, want := range permissions {
		for _, have := range s.Permissions {
			if have == want {
				return true
			}
		}
	}
	return false
}

// PrimaryRole is the role reported in auth responses: the super_admin
// flag takes priority, otherwise the first assigned role.
func (s *UserSnapshot) PrimaryRole() string {
	if s == nil {
		return ""
	}
	if s.IsSuperAdmin {
		return RoleSuperAdmin
	}
	if len(s.Roles) > 0 {
		return s.Roles[0]
	}
	return ""
}
