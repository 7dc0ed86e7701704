// Package authz holds the pure authorization predicates evaluated
// against a request's user snapshot. It produces booleans only; mapping
// a false result to an HTTP response is the caller's job, which keeps
// the package transport-agnostic.
package authz

import "github.com/noah-isme/lms-admin-api/internal/models"

// ResourceOwner describes the ownership of the resource being accessed.
// The calling handler fills in whichever identifiers apply: the
// institution the record belongs to, the teacher who owns it, the
// student it is about, and the user it belongs to directly (for parent
// access, the guardian's user id).
type ResourceOwner struct {
	InstitutionID *int64
	TeacherID     *int64
	StudentID     *int64
	UserID        *int64
}

// HasRole reports whether the snapshot holds any of the given roles.
// Exact, case-sensitive match; no super-admin override.
func HasRole(s *models.UserSnapshot, roles ...string) bool {
	return s.HasRole(roles...)
}

// HasPermission reports whether the snapshot holds any of the given
// permissions.
func HasPermission(s *models.UserSnapshot, permissions ...string) bool {
	return s.HasPermission(permissions...)
}

// Convenience predicates over HasRole.
func IsAdmin(s *models.UserSnapshot) bool   { return HasRole(s, models.RoleAdmin) }
func IsTeacher(s *models.UserSnapshot) bool { return HasRole(s, models.RoleTeacher) }
func IsStudent(s *models.UserSnapshot) bool { return HasRole(s, models.RoleStudent) }
func IsParent(s *models.UserSnapshot) bool  { return HasRole(s, models.RoleParent) }

// IsSuperAdmin honours both the user flag and the role name.
func IsSuperAdmin(s *models.UserSnapshot) bool {
	if s == nil {
		return false
	}
	return s.IsSuperAdmin || s.HasRole(models.RoleSuperAdmin)
}

// CanAccess is the single ownership/scoping predicate every collaborator
// calls instead of re-deriving the rules:
//
//   - super_admin bypasses institution scoping entirely
//   - admin reaches records of their own institution
//   - teacher reaches records of their own institution that they own
//   - student and parent reach their own profile and records the caller
//     has tied to their user id
func CanAccess(s *models.UserSnapshot, owner ResourceOwner) bool {
	if s == nil || !s.IsActive {
		return false
	}
	if IsSuperAdmin(s) {
		return true
	}

	// Self access applies to every role.
	if owner.UserID != nil && *owner.UserID == s.UserID {
		return true
	}

	if IsAdmin(s) {
		return sameInstitution(s.InstitutionID, owner.InstitutionID)
	}

	if IsTeacher(s) {
		if owner.TeacherID == nil || *owner.TeacherID != s.UserID {
			return false
		}
		// A cross-institution record never belongs to this teacher.
		if owner.InstitutionID != nil && !sameInstitution(s.InstitutionID, owner.InstitutionID) {
			return false
		}
		return true
	}

	if IsStudent(s) {
		return owner.StudentID != nil && *owner.StudentID == s.UserID
	}

	// Parents only pass the self-access check above: the caller resolves
	// the child relation and sets UserID to the guardian's user id.
	return false
}

func sameInstitution(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
