package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/service"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// LessonHandler exposes lesson authoring endpoints.
type LessonHandler struct {
	service *service.LessonService
}

// NewLessonHandler creates a new handler.
func NewLessonHandler(svc *service.LessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// ListByCourse godoc
// @Summary List lessons of a course
// @Description List every lesson of a course, drafts included
// @Tags Admin Lessons
// @Produce json
// @Param id path string true "Course id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id}/lessons [get]
func (h *LessonHandler) ListByCourse(c *gin.Context) {
	lessons, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Get godoc
// @Summary Get lesson
// @Tags Admin Lessons
// @Produce json
// @Param id path string true "Lesson id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Create godoc
// @Summary Create lesson
// @Description Create a lesson under a course or a chapter; new lessons start as drafts
// @Tags Admin Lessons
// @Accept json
// @Produce json
// @Param payload body service.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req service.CreateLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}

	lesson, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Update godoc
// @Summary Update lesson
// @Description Update lesson fields including status transitions
// @Tags Admin Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson id"
// @Param payload body service.UpdateLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req service.UpdateLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}

	lesson, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete lesson
// @Tags Admin Lessons
// @Param id path string true "Lesson id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReorderInChapter godoc
// @Summary Reorder lessons within a chapter
// @Tags Admin Lessons
// @Accept json
// @Param id path string true "Chapter id"
// @Param payload body service.ReorderRequest true "Ordered lesson ids"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/chapters/{id}/lessons/reorder [put]
func (h *LessonHandler) ReorderInChapter(c *gin.Context) {
	var req service.ReorderRequest
	if !bindJSON(c, &req, "invalid reorder payload") {
		return
	}

	if err := h.service.ReorderInChapter(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReorderStandalone godoc
// @Summary Reorder a course's standalone lessons
// @Tags Admin Lessons
// @Accept json
// @Param id path string true "Course id"
// @Param payload body service.ReorderRequest true "Ordered lesson ids"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses/{id}/lessons/reorder [put]
func (h *LessonHandler) ReorderStandalone(c *gin.Context) {
	var req service.ReorderRequest
	if !bindJSON(c, &req, "invalid reorder payload") {
		return
	}

	if err := h.service.ReorderStandalone(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
