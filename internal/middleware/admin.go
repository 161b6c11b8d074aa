package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// AdminOnly restricts authoring routes to the configured email allow-list.
// The list is resolved once at startup; membership is case-insensitive.
func AdminOnly(isAdminEmail func(string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if isAdminEmail == nil || !isAdminEmail(claims.Email) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
