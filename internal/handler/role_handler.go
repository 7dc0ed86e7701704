package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/service"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

// RoleHandler handles role and permission administration.
type RoleHandler struct {
	service *service.RBACService
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(svc *service.RBACService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// ListRoles godoc
// @Summary List roles
// @Description List roles with their permissions
// @Tags RBAC
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// CreateRole godoc
// @Summary Create role
// @Description Create a role with an initial permission set
// @Tags RBAC
// @Accept json
// @Produce json
// @Param payload body models.CreateRoleRequest true "Create role payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, role)
}

// SetRolePermissions godoc
// @Summary Replace role permissions
// @Description Replace the permission set of a role
// @Tags RBAC
// @Accept json
// @Produce json
// @Param name path string true "Role name"
// @Param payload body models.SetRolePermissionsRequest true "Permissions payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roles/{name}/permissions [put]
func (h *RoleHandler) SetRolePermissions(c *gin.Context) {
	var req models.SetRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	role, err := h.service.SetRolePermissions(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, role, nil)
}

// ListPermissions godoc
// @Summary List permissions
// @Description List the permission catalog
// @Tags RBAC
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	permissions, err := h.service.ListPermissions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, permissions, nil)
}

// AssignRole godoc
// @Summary Assign role
// @Description Attach a role to a user
// @Tags RBAC
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param payload body models.AssignRoleRequest true "Assign role payload"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/roles [post]
func (h *RoleHandler) AssignRole(c *gin.Context) {
	actor := snapshotFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.AssignRole(c.Request.Context(), actor, id, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RemoveRole godoc
// @Summary Remove role
// @Description Detach a role from a user
// @Tags RBAC
// @Produce json
// @Param id path int true "User ID"
// @Param role path string true "Role name"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/roles/{role} [delete]
func (h *RoleHandler) RemoveRole(c *gin.Context) {
	actor := snapshotFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	if err := h.service.RemoveRole(c.Request.Context(), actor, id, c.Param("role")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
