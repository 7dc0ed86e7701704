package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/authz"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

// SelfScope is the RBAC marker allowing a user to reach their own
// record by numeric :id path parameter.
const SelfScope = "SELF"

// RBAC enforces role-based access control for routes. Super admins
// pass every role gate; other callers need one of the listed roles or,
// when SELF is listed, an :id parameter matching their own user id.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := currentSnapshot(c)
		if snapshot == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if authz.IsSuperAdmin(snapshot) {
			c.Next()
			return
		}

		allowSelf := false
		for _, a := range allowed {
			if a == SelfScope {
				allowSelf = true
				continue
			}
			if authz.HasRole(snapshot, a) {
				c.Next()
				return
			}
		}

		if allowSelf {
			if targetID, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil && targetID == snapshot.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequirePermissions passes callers holding every listed permission.
func RequirePermissions(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := currentSnapshot(c)
		if snapshot == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if authz.IsSuperAdmin(snapshot) {
			c.Next()
			return
		}

		for _, p := range permissions {
			if !authz.HasPermission(snapshot, p) {
				response.Error(c, appErrors.ErrForbidden)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func currentSnapshot(c *gin.Context) *models.UserSnapshot {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	snapshot, ok := value.(*models.UserSnapshot)
	if !ok {
		return nil
	}
	return snapshot
}
