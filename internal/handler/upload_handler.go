package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/service"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// UploadHandler accepts poster image uploads for courses and chapters.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler creates a new handler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// UploadPoster godoc
// @Summary Upload a poster image
// @Description Store a JPEG, PNG or WebP poster and return its public URL
// @Tags Admin Uploads
// @Accept mpfd
// @Produce json
// @Param file formData file true "Poster image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/uploads/posters [post]
func (h *UploadHandler) UploadPoster(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	result, err := h.service.SavePoster(header)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
