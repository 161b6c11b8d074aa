package dto

import "github.com/Kiog-Aser/CourseThing/internal/models"

// ReportRequest is the payload for enqueueing a course progress export.
type ReportRequest struct {
	Type     models.ReportType   `json:"type"`
	CourseID string              `json:"courseId"`
	Format   models.ReportFormat `json:"format"`
}

// ReportJobResponse acknowledges a newly queued report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse is polled by clients until the job finishes; the
// download URL appears only on finished jobs.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
