package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	"github.com/Kiog-Aser/CourseThing/pkg/export"
	"github.com/Kiog-Aser/CourseThing/pkg/storage"
)

type exportCourseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type exportCompletionStats interface {
	StatsByCourse(ctx context.Context, courseID string) ([]models.CourseCompletionStat, error)
}

type exportLessonSource interface {
	ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	courses     exportCourseLookup
	completions exportCompletionStats
	lessons     exportLessonSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(courses exportCourseLookup, completions exportCompletionStats, lessons exportLessonSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		courses:     courses,
		completions: completions,
		lessons:     lessons,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset according to the job definition and stores the
// rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	table, title, err := s.buildTable(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(table)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	coursePart := sanitizeFilename(job.Params.CourseID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), coursePart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildTable(ctx context.Context, job *models.ReportJob) (export.Table, string, error) {
	switch job.Type {
	case models.ReportTypeCourseProgress:
		return s.buildProgressTable(ctx, job.Params)
	default:
		return export.Table{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

// buildProgressTable lists every learner with at least one completion in the
// course, with their completion count against the course's published lesson
// total.
func (s *ExportService) buildProgressTable(ctx context.Context, params models.ReportJobParams) (export.Table, string, error) {
	course, err := s.courses.FindByID(ctx, params.CourseID)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load course: %w", err)
	}

	lessons, err := s.lessons.ListByCourse(ctx, course.ID, true)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("count lessons: %w", err)
	}
	total := len(lessons)

	stats, err := s.completions.StatsByCourse(ctx, course.ID)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load completion stats: %w", err)
	}

	rows := make([][]string, 0, len(stats))
	for _, stat := range stats {
		percent := 0
		if total > 0 {
			percent = int(math.Round(100 * float64(stat.CompletedCount) / float64(total)))
		}
		rows = append(rows, []string{
			stat.FullName,
			stat.Email,
			fmt.Sprintf("%d", stat.CompletedCount),
			fmt.Sprintf("%d", total),
			fmt.Sprintf("%d", percent),
			formatReportTime(stat.LastCompletion),
		})
	}

	table := export.Table{
		Columns: []string{"Learner", "Email", "Completed", "Total Lessons", "Progress (%)", "Last Activity"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Progress Report %s", course.Title)
	return table, title, nil
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
