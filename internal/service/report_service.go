package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/dto"
	"github.com/Kiog-Aser/CourseThing/internal/models"
	"github.com/Kiog-Aser/CourseThing/internal/repository"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
	"github.com/Kiog-Aser/CourseThing/pkg/jobs"
)

// cleanupBatch bounds a single sweep so cleanup never holds a long cursor.
const cleanupBatch = 100

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates report job lifecycle management. Reports are
// admin-only; the router guards the routes, so the service does not re-check
// the caller.
type ReportService struct {
	repo     reportJobStore
	courses  exportCourseLookup
	queue    jobDispatcher
	exporter *ExportService
	log      *zap.SugaredLogger
	cfg      ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, courses exportCourseLookup, queue jobDispatcher, exporter *ExportService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		repo:     repo,
		courses:  courses,
		queue:    queue,
		exporter: exporter,
		log:      logger.Sugar(),
		cfg:      cfg,
	}
}

// CreateJob validates the request, persists the job and enqueues processing.
// An enqueue failure marks the persisted job failed so it is never replayed
// by recovery.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    models.ReportJobParams{CourseID: req.CourseID, Format: req.Format},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		if markErr := markJobFailed(ctx, s.repo, job.ID, "failed to enqueue job"); markErr != nil {
			s.log.Warnw("failed to mark unenqueued job failed", "job_id", job.ID, "error", markErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}

	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to clients.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored export file. The
// token alone is not trusted: it must still match the URL recorded on a
// finished job.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}

	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.log.Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.log.Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		finished, err := s.repo.ListFinishedBefore(ctx, cutoff, cleanupBatch)
		if err != nil {
			s.log.Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range finished {
			s.deleteJobExport(job)
			// Clearing the URL retires the row from future sweeps. If that
			// fails the next list call would return the same batch, so bail
			// out rather than spin on it.
			if err := s.retireJob(ctx, job.ID); err != nil {
				s.log.Warnw("cleanup retire failed", "job_id", job.ID, "error", err)
				return
			}
		}
		if len(finished) < cleanupBatch {
			break
		}
	}
	// Catch orphaned files whose job rows are already gone.
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.log.Warnw("filesystem cleanup failed", "error", err)
	}
}

// retireJob clears the download URL of a swept job so the expired export can
// no longer be resolved and the row drops out of ListFinishedBefore.
func (s *ReportService) retireJob(ctx context.Context, id string) error {
	cleared := ""
	return s.repo.Update(ctx, id, repository.UpdateReportJobParams{ResultURL: &cleared})
}

// deleteJobExport removes the file behind a finished job's download URL.
// Expired tokens are still accepted here since the file itself is the thing
// being retired.
func (s *ReportService) deleteJobExport(job models.ReportJob) {
	if job.ResultURL == nil {
		return
	}
	token := tokenFromURL(*job.ResultURL)
	if token == "" {
		return
	}
	_, relPath, _, err := s.exporter.ParseToken(token, true)
	if err != nil {
		return
	}
	if err := s.exporter.Delete(relPath); err != nil {
		s.log.Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
	}
}

func (s *ReportService) validateRequest(ctx context.Context, req dto.ReportRequest) error {
	if req.Type != models.ReportTypeCourseProgress {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	switch req.Format {
	case models.ReportFormatCSV, models.ReportFormatPDF:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if req.CourseID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

func (s *ReportService) loadJob(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// markJobFailed finalizes a job with an error message. Shared by the service
// (enqueue failures) and the worker (exhausted retries).
func markJobFailed(ctx context.Context, store reportJobStore, id, msg string) error {
	failed := models.ReportStatusFailed
	progress := 100
	now := time.Now().UTC()
	return store.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	})
}

func tokenFromURL(url string) string {
	if idx := strings.LastIndexByte(url, '/'); idx >= 0 {
		return url[idx+1:]
	}
	return ""
}

// ReportWorker bridges queue jobs to the ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	log        *zap.SugaredLogger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		log:        logger.Sugar(),
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job. Returning a non-nil error hands the retry
// decision back to the queue; the worker only records the resulting state.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	// A duplicate delivery of an already settled job is a no-op.
	if record.Status.Terminal() {
		return nil
	}

	if err := w.setProgress(ctx, job.ID, models.ReportStatusProcessing, 10); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		w.recordFailure(ctx, job, err)
		return err
	}

	return w.finish(ctx, job.ID, result.URL)
}

func (w *ReportWorker) setProgress(ctx context.Context, id string, status models.ReportStatus, progress int) error {
	return w.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:   &status,
		Progress: &progress,
	})
}

// recordFailure either finalizes the job or resets it to queued for the next
// attempt, depending on how many the queue has already made.
func (w *ReportWorker) recordFailure(ctx context.Context, job jobs.Job, cause error) {
	if job.Attempt >= w.maxRetries {
		if err := markJobFailed(ctx, w.repo, job.ID, cause.Error()); err != nil {
			w.log.Warnw("failed to mark job failed", "job_id", job.ID, "error", err)
		}
		return
	}

	queued := models.ReportStatusQueued
	reset := 0
	msg := cause.Error()
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &queued,
		Progress:     &reset,
		ErrorMessage: &msg,
	}); err != nil {
		w.log.Warnw("failed to mark job queued", "job_id", job.ID, "error", err)
	}
}

func (w *ReportWorker) finish(ctx context.Context, id, resultURL string) error {
	finished := models.ReportStatusFinished
	progress := 100
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &resultURL,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.log.Warnw("failed to mark job finished", "job_id", id, "error", err)
		return err
	}
	return nil
}
