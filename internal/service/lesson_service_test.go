package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type mockLessonRepo struct {
	items        map[string]*models.Lesson
	nextPosition int
	reordered    [][]string
}

func (m *mockLessonRepo) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range m.items {
		if publishedOnly && !l.Published() {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if l, ok := m.items[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) NextPosition(ctx context.Context, courseID, chapterID *string) (int, error) {
	return m.nextPosition, nil
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if m.items == nil {
		m.items = make(map[string]*models.Lesson)
	}
	if lesson.ID == "" {
		lesson.ID = "generated"
	}
	cp := *lesson
	m.items[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	cp := *lesson
	m.items[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockLessonRepo) ReorderInChapter(ctx context.Context, chapterID string, orderedIDs []string) error {
	m.reordered = append(m.reordered, orderedIDs)
	return nil
}

func (m *mockLessonRepo) ReorderStandalone(ctx context.Context, courseID string, orderedIDs []string) error {
	m.reordered = append(m.reordered, orderedIDs)
	return nil
}

type mockChapterLookup struct {
	chapters map[string]*models.Chapter
}

func (m *mockChapterLookup) FindByID(ctx context.Context, id string) (*models.Chapter, error) {
	if ch, ok := m.chapters[id]; ok {
		cp := *ch
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newLessonServiceFixture() (*LessonService, *mockLessonRepo) {
	repo := &mockLessonRepo{nextPosition: 2}
	courses := &mockCourseRepo{items: map[string]*models.Course{
		"c1": {ID: "c1", Slug: "spanish-101", Title: "Spanish 101"},
	}}
	chapters := &mockChapterLookup{chapters: map[string]*models.Chapter{
		"ch1": {ID: "ch1", CourseID: "c1", Slug: "basics", Title: "Basics"},
	}}
	svc := NewLessonService(repo, courses, chapters, nil, validator.New(), zap.NewNop())
	return svc, repo
}

func TestLessonServiceCreateStandalone(t *testing.T) {
	svc, _ := newLessonServiceFixture()
	courseID := "c1"

	lesson, err := svc.Create(context.Background(), CreateLessonRequest{
		CourseID: &courseID,
		Slug:     "intro",
		Title:    "Intro",
		Kind:     models.LessonKindText,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusDraft, lesson.Status)
	assert.Equal(t, 2, lesson.Position)
}

func TestLessonServiceCreateRequiresExactlyOneParent(t *testing.T) {
	svc, _ := newLessonServiceFixture()
	courseID := "c1"
	chapterID := "ch1"

	_, err := svc.Create(context.Background(), CreateLessonRequest{
		Slug:  "intro",
		Title: "Intro",
		Kind:  models.LessonKindText,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateLessonRequest{
		CourseID:  &courseID,
		ChapterID: &chapterID,
		Slug:      "intro",
		Title:     "Intro",
		Kind:      models.LessonKindText,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCreateUnknownChapter(t *testing.T) {
	svc, _ := newLessonServiceFixture()
	chapterID := "ghost"

	_, err := svc.Create(context.Background(), CreateLessonRequest{
		ChapterID: &chapterID,
		Slug:      "intro",
		Title:     "Intro",
		Kind:      models.LessonKindText,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceCreateHonoursExplicitPosition(t *testing.T) {
	svc, _ := newLessonServiceFixture()
	courseID := "c1"
	position := 7

	lesson, err := svc.Create(context.Background(), CreateLessonRequest{
		CourseID: &courseID,
		Slug:     "intro",
		Title:    "Intro",
		Kind:     models.LessonKindText,
		Position: &position,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, lesson.Position)
}

func TestLessonServiceUpdatePublishes(t *testing.T) {
	svc, repo := newLessonServiceFixture()
	courseID := "c1"
	repo.items = map[string]*models.Lesson{
		"l1": {ID: "l1", CourseID: &courseID, Slug: "intro", Title: "Intro", Kind: models.LessonKindText, Status: models.LessonStatusDraft},
	}

	lesson, err := svc.Update(context.Background(), "l1", UpdateLessonRequest{
		Slug:   "intro",
		Title:  "Intro",
		Kind:   models.LessonKindText,
		Status: models.LessonStatusPublished,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusPublished, lesson.Status)
}

func TestLessonServiceReorderInChapter(t *testing.T) {
	svc, repo := newLessonServiceFixture()

	require.NoError(t, svc.ReorderInChapter(context.Background(), "ch1", ReorderRequest{OrderedIDs: []string{"l2", "l1"}}))
	require.Len(t, repo.reordered, 1)
	assert.Equal(t, []string{"l2", "l1"}, repo.reordered[0])
}

func TestLessonServiceReorderUnknownChapter(t *testing.T) {
	svc, _ := newLessonServiceFixture()

	err := svc.ReorderInChapter(context.Background(), "ghost", ReorderRequest{OrderedIDs: []string{"l1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceReorderRejectsEmptyList(t *testing.T) {
	svc, _ := newLessonServiceFixture()

	err := svc.ReorderStandalone(context.Background(), "c1", ReorderRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
