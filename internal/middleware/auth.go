package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/lms-admin-api/internal/service"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

// ContextUserKey is the gin context key storing the request's user snapshot.
const ContextUserKey = "currentUser"

// Auth protects routes by requiring a valid access token. The token
// only proves identity; roles and permissions are re-read from the
// database on every request, so a role change or deactivation takes
// effect on the very next call.
func Auth(codec *service.TokenCodec, loader *service.ContextLoader, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := service.ExtractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := codec.VerifyAccess(token)
		if err != nil {
			if metrics != nil {
				cause := service.TokenRejectionInvalid
				if errors.Is(err, jwt.ErrTokenExpired) {
					cause = service.TokenRejectionExpired
				}
				metrics.RecordTokenRejection(cause)
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		snapshot, err := loader.Load(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user context"))
			c.Abort()
			return
		}
		if snapshot == nil {
			response.Error(c, appErrors.ErrInvalidToken)
			c.Abort()
			return
		}
		if !snapshot.IsActive {
			response.Error(c, appErrors.ErrAccountInactive)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, snapshot)
		c.Next()
	}
}
