package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type mockCompletionRepo struct {
	completions map[string]time.Time
	marked      []string
	unmarked    []string
}

func completionKey(userID, lessonID string) string {
	return userID + ":" + lessonID
}

func (m *mockCompletionRepo) CompletedLessonIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	prefix := userID + ":"
	var ids []string
	for key := range m.completions {
		if strings.HasPrefix(key, prefix) {
			ids = append(ids, strings.TrimPrefix(key, prefix))
		}
	}
	return ids, nil
}

func (m *mockCompletionRepo) Mark(ctx context.Context, userID, lessonID string) error {
	if m.completions == nil {
		m.completions = make(map[string]time.Time)
	}
	m.marked = append(m.marked, lessonID)
	key := completionKey(userID, lessonID)
	// Keep the first timestamp on repeat marks, mirroring the conflict
	// handling in the completions table.
	if _, exists := m.completions[key]; !exists {
		m.completions[key] = time.Now()
	}
	return nil
}

func (m *mockCompletionRepo) Unmark(ctx context.Context, userID, lessonID string) error {
	m.unmarked = append(m.unmarked, lessonID)
	delete(m.completions, completionKey(userID, lessonID))
	return nil
}

func (m *mockCompletionRepo) Get(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error) {
	at, ok := m.completions[completionKey(userID, lessonID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.LessonCompletion{UserID: userID, LessonID: lessonID, CompletedAt: at}, nil
}

type mockLessonLookup struct {
	lessons map[string]*models.Lesson
}

func (m *mockLessonLookup) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if lesson, ok := m.lessons[id]; ok {
		cp := *lesson
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newCompletionFixture(lessons ...models.Lesson) (*CompletionService, *mockCompletionRepo) {
	repo := &mockCompletionRepo{}
	lookup := &mockLessonLookup{lessons: make(map[string]*models.Lesson)}
	for i := range lessons {
		lookup.lessons[lessons[i].ID] = &lessons[i]
	}
	svc := NewCompletionService(repo, lookup, nil, nil, zap.NewNop())
	return svc, repo
}

func TestCompletionMark(t *testing.T) {
	svc, repo := newCompletionFixture(publishedLesson("l1", 0))

	completion, err := svc.Mark(context.Background(), "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, "l1", completion.LessonID)
	assert.False(t, completion.CompletedAt.IsZero())
	assert.Equal(t, []string{"l1"}, repo.marked)
}

func TestCompletionMarkIsIdempotent(t *testing.T) {
	svc, _ := newCompletionFixture(publishedLesson("l1", 0))

	first, err := svc.Mark(context.Background(), "u1", "l1")
	require.NoError(t, err)

	second, err := svc.Mark(context.Background(), "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestCompletionMarkUnknownLesson(t *testing.T) {
	svc, _ := newCompletionFixture()

	_, err := svc.Mark(context.Background(), "u1", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCompletionMarkRejectsDraftLesson(t *testing.T) {
	draft := models.Lesson{ID: "d1", Status: models.LessonStatusDraft}
	svc, _ := newCompletionFixture(draft)

	_, err := svc.Mark(context.Background(), "u1", "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCompletionUnmark(t *testing.T) {
	svc, repo := newCompletionFixture(publishedLesson("l1", 0))

	_, err := svc.Mark(context.Background(), "u1", "l1")
	require.NoError(t, err)

	require.NoError(t, svc.Unmark(context.Background(), "u1", "l1"))
	assert.Empty(t, repo.completions)
}

func TestCompletionUnmarkNeverCompletedIsNoop(t *testing.T) {
	svc, repo := newCompletionFixture(publishedLesson("l1", 0))

	require.NoError(t, svc.Unmark(context.Background(), "u1", "l1"))
	assert.Equal(t, []string{"l1"}, repo.unmarked)
}

func TestCompletedLessonIDsBuildsMembershipSet(t *testing.T) {
	svc, _ := newCompletionFixture(publishedLesson("l1", 0), publishedLesson("l2", 1))

	_, err := svc.Mark(context.Background(), "u1", "l1")
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), "u1", "l2")
	require.NoError(t, err)

	set, err := svc.CompletedLessonIDs(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "l1")
	assert.Contains(t, set, "l2")
}
