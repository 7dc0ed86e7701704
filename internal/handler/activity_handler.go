package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/service"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

// ActivityHandler exposes the login-activity audit trail.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List login activity
// @Description List login activity records with filtering
// @Tags Activity
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param user_id query int false "User filter"
// @Param successful query bool false "Outcome filter"
// @Param from query string false "Start time (RFC3339)"
// @Param to query string false "End time (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /login-activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	actor := snapshotFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := activityFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Export godoc
// @Summary Export login activity
// @Description Export login activity as CSV or PDF
// @Tags Activity
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /login-activity/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	actor := snapshotFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := activityFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, contentType, filename, err := h.service.Export(c.Request.Context(), actor, filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func activityFilterFromQuery(c *gin.Context) (models.ActivityFilter, error) {
	var filter models.ActivityFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil {
		filter.PageSize = size
	}
	if userID := c.Query("user_id"); userID != "" {
		val, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid user_id")
		}
		filter.UserID = &val
	}
	if successful := c.Query("successful"); successful != "" {
		val, err := strconv.ParseBool(successful)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid successful flag")
		}
		filter.Successful = &val
	}
	if from := c.Query("from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp")
		}
		filter.From = &ts
	}
	if to := c.Query("to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp")
		}
		filter.To = &ts
	}

	return filter, nil
}
