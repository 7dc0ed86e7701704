package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/middleware"
	"github.com/noah-isme/lms-admin-api/internal/models"
)

func snapshotFromContext(c *gin.Context) *models.UserSnapshot {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	snapshot, ok := value.(*models.UserSnapshot)
	if !ok {
		return nil
	}
	return snapshot
}
