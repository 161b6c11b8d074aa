package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/service"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// ChapterHandler exposes chapter authoring endpoints.
type ChapterHandler struct {
	service *service.ChapterService
}

// NewChapterHandler creates a new handler.
func NewChapterHandler(svc *service.ChapterService) *ChapterHandler {
	return &ChapterHandler{service: svc}
}

// ListByCourse godoc
// @Summary List chapters of a course
// @Tags Admin Chapters
// @Produce json
// @Param id path string true "Course id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id}/chapters [get]
func (h *ChapterHandler) ListByCourse(c *gin.Context) {
	chapters, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapters, nil)
}

// Get godoc
// @Summary Get chapter
// @Tags Admin Chapters
// @Produce json
// @Param id path string true "Chapter id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/chapters/{id} [get]
func (h *ChapterHandler) Get(c *gin.Context) {
	chapter, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapter, nil)
}

// Create godoc
// @Summary Create chapter
// @Tags Admin Chapters
// @Accept json
// @Produce json
// @Param payload body service.CreateChapterRequest true "Chapter payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/chapters [post]
func (h *ChapterHandler) Create(c *gin.Context) {
	var req service.CreateChapterRequest
	if !bindJSON(c, &req, "invalid chapter payload") {
		return
	}

	chapter, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, chapter)
}

// Update godoc
// @Summary Update chapter
// @Tags Admin Chapters
// @Accept json
// @Produce json
// @Param id path string true "Chapter id"
// @Param payload body service.UpdateChapterRequest true "Chapter payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/chapters/{id} [put]
func (h *ChapterHandler) Update(c *gin.Context) {
	var req service.UpdateChapterRequest
	if !bindJSON(c, &req, "invalid chapter payload") {
		return
	}

	chapter, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapter, nil)
}

// Delete godoc
// @Summary Delete chapter
// @Tags Admin Chapters
// @Param id path string true "Chapter id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/chapters/{id} [delete]
func (h *ChapterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reorder godoc
// @Summary Reorder chapters
// @Description Rewrite chapter positions within a course to match the given id order
// @Tags Admin Chapters
// @Accept json
// @Param id path string true "Course id"
// @Param payload body service.ReorderRequest true "Ordered chapter ids"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses/{id}/chapters/reorder [put]
func (h *ChapterHandler) Reorder(c *gin.Context) {
	var req service.ReorderRequest
	if !bindJSON(c, &req, "invalid reorder payload") {
		return
	}

	if err := h.service.Reorder(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
