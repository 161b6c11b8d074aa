package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kiog-Aser/CourseThing/api/swagger"
	"github.com/Kiog-Aser/CourseThing/internal/handler"
	internalmw "github.com/Kiog-Aser/CourseThing/internal/middleware"
	"github.com/Kiog-Aser/CourseThing/internal/repository"
	"github.com/Kiog-Aser/CourseThing/internal/service"
	"github.com/Kiog-Aser/CourseThing/pkg/cache"
	"github.com/Kiog-Aser/CourseThing/pkg/config"
	"github.com/Kiog-Aser/CourseThing/pkg/database"
	"github.com/Kiog-Aser/CourseThing/pkg/jobs"
	"github.com/Kiog-Aser/CourseThing/pkg/logger"
	corsmiddleware "github.com/Kiog-Aser/CourseThing/pkg/middleware/cors"
	reqidmiddleware "github.com/Kiog-Aser/CourseThing/pkg/middleware/requestid"
	"github.com/Kiog-Aser/CourseThing/pkg/storage"
)

// @title CourseThing API
// @version 1.0.0
// @description Course catalogue, lesson access gating and learner progress
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.ContinueCacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	completionRepo := repository.NewCompletionRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "coursething",
	}, cfg.Admin.IsAdminEmail)

	subscriptionSvc := service.NewSubscriptionService(cacheSvc, logr, service.SubscriptionConfig{
		VerifyURL: cfg.Subscription.VerifyURL,
		Timeout:   cfg.Subscription.Timeout,
		CacheTTL:  cfg.Subscription.CacheTTL,
	})

	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	chapterSvc := service.NewChapterService(chapterRepo, courseRepo, cacheSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, courseRepo, chapterRepo, cacheSvc, validate, logr)
	completionSvc := service.NewCompletionService(completionRepo, lessonRepo, cacheSvc, metricsSvc, logr)
	learningSvc := service.NewLearningService(courseRepo, chapterRepo, lessonRepo, completionSvc, cacheSvc, metricsSvc, cfg.Catalog.ContinueCacheTTL, logr)

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	uploadSvc := service.NewUploadService(uploadStore, logr, service.UploadConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
		PublicBaseURL:    cfg.PublicBaseURL,
	})

	var reportSvc *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)
		reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(courseRepo, completionRepo, lessonRepo, reportStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportSvc = service.NewReportService(reportRepo, courseRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmw.Metrics(metricsSvc))

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Course:     handler.NewCourseHandler(courseSvc),
		Chapter:    handler.NewChapterHandler(chapterSvc),
		Lesson:     handler.NewLessonHandler(lessonSvc),
		Learning:   handler.NewLearningHandler(learningSvc, subscriptionSvc, cfg.Admin.IsAdminEmail),
		Completion: handler.NewCompletionHandler(completionSvc),
		Upload:     handler.NewUploadHandler(uploadSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc, func(ctx context.Context) error {
			return db.PingContext(ctx)
		}),
	}
	if reportSvc != nil {
		handlers.Report = handler.NewReportHandler(reportSvc)
	}

	handler.RegisterRoutes(r, handlers, handler.RouterConfig{
		APIPrefix:    cfg.APIPrefix,
		AuthService:  authSvc,
		IsAdminEmail: cfg.Admin.IsAdminEmail,
		UploadsDir:   cfg.Uploads.StorageDir,
		ReportsOn:    reportSvc != nil,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
