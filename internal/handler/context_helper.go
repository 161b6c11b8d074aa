package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/middleware"
	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// claimsFromContext returns the verified token claims for the request, or
// nil for anonymous viewers on optional-auth routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	if claims, ok := value.(*models.JWTClaims); ok {
		return claims
	}
	return nil
}

// bindJSON decodes the request body into dst. On failure it writes the
// validation error response and returns false so the handler can bail out.
func bindJSON(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg))
		return false
	}
	return true
}
