package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/service"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// CompletionHandler toggles lesson completion for the current user.
type CompletionHandler struct {
	service *service.CompletionService
}

// NewCompletionHandler creates a new handler.
func NewCompletionHandler(svc *service.CompletionService) *CompletionHandler {
	return &CompletionHandler{service: svc}
}

// Mark godoc
// @Summary Mark lesson complete
// @Description Idempotent; marking twice keeps the original timestamp
// @Tags Learning
// @Produce json
// @Param id path string true "Lesson id"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id}/complete [post]
func (h *CompletionHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	completion, err := h.service.Mark(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, completion, nil)
}

// Unmark godoc
// @Summary Unmark lesson completion
// @Description Idempotent; unmarking an incomplete lesson is a no-op
// @Tags Learning
// @Param id path string true "Lesson id"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id}/complete [delete]
func (h *CompletionHandler) Unmark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unmark(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
