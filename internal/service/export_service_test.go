package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	"github.com/Kiog-Aser/CourseThing/pkg/storage"
)

type memoryFileStorage struct {
	files map[string][]byte
}

func (m *memoryFileStorage) Save(filename string, data []byte) (string, error) {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[filename] = data
	return filename, nil
}

func (m *memoryFileStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *memoryFileStorage) Delete(filename string) error {
	delete(m.files, filename)
	return nil
}

func (m *memoryFileStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type statsMock struct {
	stats []models.CourseCompletionStat
}

func (m *statsMock) StatsByCourse(ctx context.Context, courseID string) ([]models.CourseCompletionStat, error) {
	return m.stats, nil
}

func newExportFixture(t *testing.T, stats []models.CourseCompletionStat) (*ExportService, *memoryFileStorage) {
	t.Helper()
	courses := &mockCourseRepo{items: map[string]*models.Course{
		"c1": {ID: "c1", Slug: "spanish-101", Title: "Spanish 101"},
	}}
	lessons := &mockLessonRepo{items: map[string]*models.Lesson{
		"l1": {ID: "l1", Slug: "intro", Status: models.LessonStatusPublished},
		"l2": {ID: "l2", Slug: "verbs", Status: models.LessonStatusPublished},
	}}
	store := &memoryFileStorage{}
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	svc := NewExportService(courses, &statsMock{stats: stats}, lessons, store, signer, ExportConfig{
		APIPrefix: "/api/v1",
		ResultTTL: time.Hour,
	}, zap.NewNop(), nil, nil)
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	last := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc, store := newExportFixture(t, []models.CourseCompletionStat{
		{UserID: "u1", Email: "a@example.com", FullName: "Learner A", CompletedCount: 1, LastCompletion: &last},
	})

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeCourseProgress,
		Params: models.ReportJobParams{CourseID: "c1", Format: models.ReportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	require.Len(t, store.files, 1)
	content := string(store.files[result.RelativePath])
	assert.Contains(t, content, "Learner A")
	assert.Contains(t, content, "a@example.com")
	// 1 of 2 published lessons completed.
	assert.Contains(t, content, "50")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceGenerateUnknownCourse(t *testing.T) {
	svc, _ := newExportFixture(t, nil)

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeCourseProgress,
		Params: models.ReportJobParams{CourseID: "ghost", Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportServiceGenerateUnsupportedFormat(t *testing.T) {
	svc, _ := newExportFixture(t, nil)

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeCourseProgress,
		Params: models.ReportJobParams{CourseID: "c1", Format: "xlsx"},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
