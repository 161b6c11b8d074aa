package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kiog-Aser/CourseThing/internal/middleware"
	"github.com/Kiog-Aser/CourseThing/internal/service"
)

// Handlers aggregates every HTTP handler the router mounts.
type Handlers struct {
	Auth       *AuthHandler
	Course     *CourseHandler
	Chapter    *ChapterHandler
	Lesson     *LessonHandler
	Learning   *LearningHandler
	Completion *CompletionHandler
	Upload     *UploadHandler
	Report     *ReportHandler
	Metrics    *MetricsHandler
}

// RouterConfig carries the routing dependencies that are not handlers.
type RouterConfig struct {
	APIPrefix     string
	AuthService   *service.AuthService
	IsAdminEmail  func(string) bool
	UploadsDir    string
	ReportsOn     bool
}

// RegisterRoutes mounts the API surface on the engine. The learner catalogue
// uses optional authentication so anonymous viewers still get outlines with
// lock reasons; authoring routes sit behind the admin allow-list.
func RegisterRoutes(r *gin.Engine, h Handlers, cfg RouterConfig) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.UploadsDir != "" {
		r.Static("/uploads", cfg.UploadsDir)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(cfg.AuthService), h.Auth.Logout)
		auth.PUT("/password", middleware.JWT(cfg.AuthService), h.Auth.ChangePassword)
		auth.GET("/me", middleware.JWT(cfg.AuthService), h.Auth.Me)
	}

	catalogue := api.Group("", middleware.OptionalJWT(cfg.AuthService))
	{
		catalogue.GET("/courses", h.Learning.ListCourses)
		catalogue.GET("/courses/:slug", h.Learning.GetCourse)
		catalogue.GET("/courses/:slug/lessons/:lessonSlug", h.Learning.GetLesson)
	}

	learner := api.Group("", middleware.JWT(cfg.AuthService), middleware.ResponseMeta())
	{
		learner.POST("/lessons/:id/complete", h.Completion.Mark)
		learner.DELETE("/lessons/:id/complete", h.Completion.Unmark)
		learner.GET("/learning/continue", h.Learning.ContinueLearning)
		learner.GET("/learning/courses/:slug/progress", h.Learning.GetProgress)
	}

	admin := api.Group("/admin", middleware.JWT(cfg.AuthService), middleware.AdminOnly(cfg.IsAdminEmail))
	{
		admin.GET("/courses", h.Course.List)
		admin.POST("/courses", h.Course.Create)
		admin.GET("/courses/:id", h.Course.Get)
		admin.PUT("/courses/:id", h.Course.Update)
		admin.DELETE("/courses/:id", h.Course.Delete)
		admin.GET("/courses/:id/chapters", h.Chapter.ListByCourse)
		admin.PUT("/courses/:id/chapters/reorder", h.Chapter.Reorder)
		admin.GET("/courses/:id/lessons", h.Lesson.ListByCourse)
		admin.PUT("/courses/:id/lessons/reorder", h.Lesson.ReorderStandalone)

		admin.POST("/chapters", h.Chapter.Create)
		admin.GET("/chapters/:id", h.Chapter.Get)
		admin.PUT("/chapters/:id", h.Chapter.Update)
		admin.DELETE("/chapters/:id", h.Chapter.Delete)
		admin.PUT("/chapters/:id/lessons/reorder", h.Lesson.ReorderInChapter)

		admin.POST("/lessons", h.Lesson.Create)
		admin.GET("/lessons/:id", h.Lesson.Get)
		admin.PUT("/lessons/:id", h.Lesson.Update)
		admin.DELETE("/lessons/:id", h.Lesson.Delete)

		admin.POST("/uploads/posters", h.Upload.UploadPoster)
		admin.GET("/metrics", h.Metrics.Snapshot)

		if cfg.ReportsOn {
			admin.POST("/reports/generate", h.Report.Generate)
			admin.GET("/reports/:id", h.Report.Status)
		}
	}

	if cfg.ReportsOn {
		// Download auth comes from the signed token itself.
		api.GET("/export/:token", h.Report.Download)
	}
}
