package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

func serveWithSnapshot(t *testing.T, snapshot *models.UserSnapshot, guard gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/resource/:id", func(c *gin.Context) {
		if snapshot != nil {
			c.Set(ContextUserKey, snapshot)
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRBACAllowsListedRole(t *testing.T) {
	snapshot := &models.UserSnapshot{UserID: 1, IsActive: true, Roles: []string{"admin"}}
	w := serveWithSnapshot(t, snapshot, RBAC(models.RoleAdmin), "/resource/5")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACForbidsOtherRole(t *testing.T) {
	snapshot := &models.UserSnapshot{UserID: 1, IsActive: true, Roles: []string{"student"}}
	w := serveWithSnapshot(t, snapshot, RBAC(models.RoleAdmin), "/resource/5")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACSuperAdminPassesAnyGate(t *testing.T) {
	snapshot := &models.UserSnapshot{UserID: 1, IsActive: true, IsSuperAdmin: true}
	w := serveWithSnapshot(t, snapshot, RBAC(models.RoleAdmin), "/resource/5")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfScope(t *testing.T) {
	snapshot := &models.UserSnapshot{UserID: 5, IsActive: true, Roles: []string{"student"}}

	w := serveWithSnapshot(t, snapshot, RBAC(models.RoleAdmin, SelfScope), "/resource/5")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serveWithSnapshot(t, snapshot, RBAC(models.RoleAdmin, SelfScope), "/resource/6")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACUnauthenticated(t *testing.T) {
	w := serveWithSnapshot(t, nil, RBAC(models.RoleAdmin), "/resource/5")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermissionsNeedsAll(t *testing.T) {
	snapshot := &models.UserSnapshot{UserID: 1, IsActive: true, Roles: []string{"admin"}, Permissions: []string{"users:read"}}

	w := serveWithSnapshot(t, snapshot, RequirePermissions("users:read"), "/resource/5")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serveWithSnapshot(t, snapshot, RequirePermissions("users:read", "users:write"), "/resource/5")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
