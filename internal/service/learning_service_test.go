package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type mockLearningCourseRepo struct {
	courses map[string]*models.Course
	counts  map[string]int
}

func (m *mockLearningCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockLearningCourseRepo) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockLearningCourseRepo) PublishedLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error) {
	return m.counts, nil
}

type mockLearningChapterRepo struct {
	chapters map[string][]models.Chapter
}

func (m *mockLearningChapterRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Chapter, error) {
	return m.chapters[courseID], nil
}

type mockLearningLessonRepo struct {
	byCourse map[string][]models.Lesson
	history  []models.CourseLesson
}

func (m *mockLearningLessonRepo) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error) {
	lessons := m.byCourse[courseID]
	if !publishedOnly {
		return lessons, nil
	}
	var out []models.Lesson
	for _, l := range lessons {
		if l.Published() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLearningLessonRepo) ListPublishedWithCompletion(ctx context.Context, userID string) ([]models.CourseLesson, error) {
	return m.history, nil
}

type mockCompletionSource struct {
	completed map[string]struct{}
}

func (m *mockCompletionSource) CompletedLessonIDs(ctx context.Context, userID, courseID string) (map[string]struct{}, error) {
	if m.completed == nil {
		return map[string]struct{}{}, nil
	}
	return m.completed, nil
}

// spanishFixture builds a premium course with one chapter holding two
// lessons plus one standalone lesson, so the resolved order is l1, l2, l3.
func spanishFixture() (*mockLearningCourseRepo, *mockLearningChapterRepo, *mockLearningLessonRepo) {
	chapterID := "ch1"
	courseRepo := &mockLearningCourseRepo{
		courses: map[string]*models.Course{
			"c1": {ID: "c1", Slug: "spanish-101", Title: "Spanish 101", Audience: models.AudiencePremium},
		},
		counts: map[string]int{"c1": 3},
	}
	chapterRepo := &mockLearningChapterRepo{
		chapters: map[string][]models.Chapter{
			"c1": {{ID: chapterID, CourseID: "c1", Slug: "basics", Title: "Basics", Position: 0}},
		},
	}
	l1 := publishedLesson("l1", 0)
	l1.ChapterID = &chapterID
	l2 := publishedLesson("l2", 1)
	l2.ChapterID = &chapterID
	l3 := publishedLesson("l3", 0)
	lessonRepo := &mockLearningLessonRepo{
		byCourse: map[string][]models.Lesson{"c1": {l1, l2, l3}},
	}
	return courseRepo, chapterRepo, lessonRepo
}

func newLearningFixture(completed map[string]struct{}) (*LearningService, *mockLearningLessonRepo) {
	courseRepo, chapterRepo, lessonRepo := spanishFixture()
	completions := &mockCompletionSource{completed: completed}
	svc := NewLearningService(courseRepo, chapterRepo, lessonRepo, completions, nil, nil, 0, zap.NewNop())
	return svc, lessonRepo
}

func TestGetOutlineAnonymousViewer(t *testing.T) {
	svc, _ := newLearningFixture(nil)

	resp, err := svc.GetOutline(context.Background(), "spanish-101", models.Viewer{})
	require.NoError(t, err)

	require.Len(t, resp.Chapters, 1)
	require.Len(t, resp.Chapters[0].Lessons, 2)
	require.Len(t, resp.Lessons, 1)

	first := resp.Chapters[0].Lessons[0]
	assert.Equal(t, "l1", first.ID)
	assert.False(t, first.Locked)

	second := resp.Chapters[0].Lessons[1]
	assert.True(t, second.Locked)
	assert.Equal(t, "auth", second.LockReason)

	standalone := resp.Lessons[0]
	assert.Equal(t, "l3", standalone.ID)
	assert.Equal(t, 2, standalone.Sequence)
	assert.True(t, standalone.Locked)

	assert.Nil(t, resp.Progress)
}

func TestGetOutlineSubscriberSeesProgress(t *testing.T) {
	svc, _ := newLearningFixture(map[string]struct{}{"l1": {}})
	viewer := models.Viewer{UserID: "u1", Subscribed: true}

	resp, err := svc.GetOutline(context.Background(), "spanish-101", viewer)
	require.NoError(t, err)

	for _, lesson := range resp.Chapters[0].Lessons {
		assert.False(t, lesson.Locked)
	}
	assert.True(t, resp.Chapters[0].Lessons[0].Completed)

	require.NotNil(t, resp.Progress)
	assert.Equal(t, 1, resp.Progress.CompletedCount)
	assert.Equal(t, 3, resp.Progress.TotalCount)
	assert.Equal(t, 33, resp.Progress.ProgressPercent)
	require.NotNil(t, resp.Progress.NextLesson)
	assert.Equal(t, "l2", resp.Progress.NextLesson.ID)
}

func TestGetOutlineUnknownCourse(t *testing.T) {
	svc, _ := newLearningFixture(nil)

	_, err := svc.GetOutline(context.Background(), "missing", models.Viewer{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetLessonContentFreePreview(t *testing.T) {
	svc, _ := newLearningFixture(nil)

	resp, err := svc.GetLessonContent(context.Background(), "spanish-101", "l1", models.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "l1", resp.ID)
	assert.Nil(t, resp.Previous)
	require.NotNil(t, resp.Next)
	assert.Equal(t, "l2", resp.Next.Slug)
}

func TestGetLessonContentDeniesAnonymousBeyondPreview(t *testing.T) {
	svc, _ := newLearningFixture(nil)

	_, err := svc.GetLessonContent(context.Background(), "spanish-101", "l2", models.Viewer{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSignInRequired.Code, appErrors.FromError(err).Code)
}

func TestGetLessonContentDeniesUnsubscribedOnPremium(t *testing.T) {
	svc, _ := newLearningFixture(nil)
	viewer := models.Viewer{UserID: "u1"}

	_, err := svc.GetLessonContent(context.Background(), "spanish-101", "l2", viewer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubscriptionRequired.Code, appErrors.FromError(err).Code)
}

func TestGetLessonContentNeighbours(t *testing.T) {
	svc, _ := newLearningFixture(nil)
	viewer := models.Viewer{UserID: "u1", Subscribed: true}

	resp, err := svc.GetLessonContent(context.Background(), "spanish-101", "l2", viewer)
	require.NoError(t, err)
	require.NotNil(t, resp.Previous)
	assert.Equal(t, "l1", resp.Previous.Slug)
	require.NotNil(t, resp.Next)
	assert.Equal(t, "l3", resp.Next.Slug)
}

func TestGetProgressRequiresAuth(t *testing.T) {
	svc, _ := newLearningFixture(nil)

	_, err := svc.GetProgress(context.Background(), "spanish-101", models.Viewer{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestContinueLearningNoHistory(t *testing.T) {
	svc, _ := newLearningFixture(nil)
	viewer := models.Viewer{UserID: "u1"}

	resp, fromCache, err := svc.ContinueLearning(context.Background(), viewer)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.False(t, fromCache)
}

func TestContinueLearningResumesFirstUncompleted(t *testing.T) {
	svc, lessonRepo := newLearningFixture(nil)
	done := time.Now()
	lessonRepo.history = []models.CourseLesson{
		courseLesson("l1", "spanish-101", &done),
		courseLesson("l2", "spanish-101", nil),
		courseLesson("l3", "spanish-101", nil),
	}

	resp, _, err := svc.ContinueLearning(context.Background(), models.Viewer{UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "spanish-101", resp.CourseSlug)
	assert.Equal(t, "l2", resp.LessonID)
}

func TestContinueLearningRequiresAuth(t *testing.T) {
	svc, _ := newLearningFixture(nil)

	_, _, err := svc.ContinueLearning(context.Background(), models.Viewer{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
