package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/middleware"
	"github.com/Kiog-Aser/CourseThing/internal/models"
	"github.com/Kiog-Aser/CourseThing/internal/service"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/response"
)

// LearningHandler exposes the learner-facing catalogue and progress
// endpoints.
type LearningHandler struct {
	learning      *service.LearningService
	subscriptions *service.SubscriptionService
	isAdminEmail  func(string) bool
}

// NewLearningHandler creates a new handler.
func NewLearningHandler(learning *service.LearningService, subscriptions *service.SubscriptionService, isAdminEmail func(string) bool) *LearningHandler {
	if isAdminEmail == nil {
		isAdminEmail = func(string) bool { return false }
	}
	return &LearningHandler{learning: learning, subscriptions: subscriptions, isAdminEmail: isAdminEmail}
}

// viewer builds the per-request viewer context. The subscription verdict is
// resolved here, once per request, so the gate itself stays pure.
func (h *LearningHandler) viewer(c *gin.Context) models.Viewer {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Viewer{}
	}
	viewer := models.Viewer{
		UserID: claims.UserID,
		Email:  claims.Email,
		Admin:  h.isAdminEmail(claims.Email),
	}
	if h.subscriptions != nil {
		viewer.Subscribed = h.subscriptions.IsSubscribed(c.Request.Context(), claims.UserID, claims.Email)
	}
	return viewer
}

// ListCourses godoc
// @Summary Browse the course catalogue
// @Tags Learning
// @Produce json
// @Param language query string false "Filter by language"
// @Param search query string false "Search title"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *LearningHandler) ListCourses(c *gin.Context) {
	filter := models.CourseFilter{
		Language: c.Query("language"),
		Search:   c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	courses, pagination, err := h.learning.ListCourses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// GetCourse godoc
// @Summary Course outline with lock state
// @Description Published content tree with a gate verdict per lesson and viewer progress
// @Tags Learning
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug} [get]
func (h *LearningHandler) GetCourse(c *gin.Context) {
	outline, err := h.learning.GetOutline(c.Request.Context(), c.Param("slug"), h.viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outline, nil)
}

// GetLesson godoc
// @Summary Lesson content behind the access gate
// @Description Full lesson body; denied requests carry SIGN_IN_REQUIRED or SUBSCRIPTION_REQUIRED
// @Tags Learning
// @Produce json
// @Param slug path string true "Course slug"
// @Param lessonSlug path string true "Lesson slug"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug}/lessons/{lessonSlug} [get]
func (h *LearningHandler) GetLesson(c *gin.Context) {
	lesson, err := h.learning.GetLessonContent(c.Request.Context(), c.Param("slug"), c.Param("lessonSlug"), h.viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// GetProgress godoc
// @Summary Course progress for the current user
// @Tags Learning
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning/courses/{slug}/progress [get]
func (h *LearningHandler) GetProgress(c *gin.Context) {
	progress, err := h.learning.GetProgress(c.Request.Context(), c.Param("slug"), h.viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// ContinueLearning godoc
// @Summary Best course and lesson to resume
// @Description Cross-course resume target; null data when the user has no learning history
// @Tags Learning
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /learning/continue [get]
func (h *LearningHandler) ContinueLearning(c *gin.Context) {
	viewer := h.viewer(c)
	if !viewer.Authenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	target, fromCache, err := h.learning.ContinueLearning(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, target, nil, middleware.Meta(c))
}
