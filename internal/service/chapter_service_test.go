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

type mockChapterRepo struct {
	items        map[string]*models.Chapter
	nextPosition int
	reordered    [][]string
	reorderErr   error
}

func (m *mockChapterRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Chapter, error) {
	var out []models.Chapter
	for _, ch := range m.items {
		if ch.CourseID == courseID {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (m *mockChapterRepo) FindByID(ctx context.Context, id string) (*models.Chapter, error) {
	if ch, ok := m.items[id]; ok {
		cp := *ch
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockChapterRepo) ExistsSlug(ctx context.Context, courseID, slug, excludeID string) (bool, error) {
	for id, ch := range m.items {
		if ch.CourseID == courseID && ch.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockChapterRepo) NextPosition(ctx context.Context, courseID string) (int, error) {
	return m.nextPosition, nil
}

func (m *mockChapterRepo) Create(ctx context.Context, chapter *models.Chapter) error {
	if m.items == nil {
		m.items = make(map[string]*models.Chapter)
	}
	if chapter.ID == "" {
		chapter.ID = "generated"
	}
	cp := *chapter
	m.items[chapter.ID] = &cp
	return nil
}

func (m *mockChapterRepo) Update(ctx context.Context, chapter *models.Chapter) error {
	cp := *chapter
	m.items[chapter.ID] = &cp
	return nil
}

func (m *mockChapterRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockChapterRepo) Reorder(ctx context.Context, courseID string, orderedIDs []string) error {
	if m.reorderErr != nil {
		return m.reorderErr
	}
	m.reordered = append(m.reordered, orderedIDs)
	return nil
}

func newChapterServiceFixture(repo *mockChapterRepo) *ChapterService {
	courses := &mockCourseRepo{items: map[string]*models.Course{
		"c1": {ID: "c1", Slug: "spanish-101", Title: "Spanish 101"},
	}}
	return NewChapterService(repo, courses, nil, validator.New(), zap.NewNop())
}

func TestChapterServiceCreateAppendsAtEnd(t *testing.T) {
	repo := &mockChapterRepo{nextPosition: 3}
	svc := newChapterServiceFixture(repo)

	chapter, err := svc.Create(context.Background(), CreateChapterRequest{
		CourseID: "c1",
		Slug:     "basics",
		Title:    "Basics",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, chapter.Position)
}

func TestChapterServiceCreateUnknownCourse(t *testing.T) {
	svc := newChapterServiceFixture(&mockChapterRepo{})

	_, err := svc.Create(context.Background(), CreateChapterRequest{
		CourseID: "ghost",
		Slug:     "basics",
		Title:    "Basics",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestChapterServiceCreateDuplicateSlugInCourse(t *testing.T) {
	repo := &mockChapterRepo{items: map[string]*models.Chapter{
		"ch1": {ID: "ch1", CourseID: "c1", Slug: "basics", Title: "Basics"},
	}}
	svc := newChapterServiceFixture(repo)

	_, err := svc.Create(context.Background(), CreateChapterRequest{
		CourseID: "c1",
		Slug:     "basics",
		Title:    "Basics Again",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestChapterServiceReorder(t *testing.T) {
	repo := &mockChapterRepo{items: map[string]*models.Chapter{
		"ch1": {ID: "ch1", CourseID: "c1", Slug: "basics", Position: 0},
		"ch2": {ID: "ch2", CourseID: "c1", Slug: "grammar", Position: 1},
	}}
	svc := newChapterServiceFixture(repo)

	require.NoError(t, svc.Reorder(context.Background(), "c1", ReorderRequest{OrderedIDs: []string{"ch2", "ch1"}}))
	require.Len(t, repo.reordered, 1)
	assert.Equal(t, []string{"ch2", "ch1"}, repo.reordered[0])
}

func TestChapterServiceReorderRejectsIncompleteList(t *testing.T) {
	repo := &mockChapterRepo{items: map[string]*models.Chapter{
		"ch1": {ID: "ch1", CourseID: "c1", Slug: "basics", Position: 0},
		"ch2": {ID: "ch2", CourseID: "c1", Slug: "grammar", Position: 1},
	}}
	svc := newChapterServiceFixture(repo)

	err := svc.Reorder(context.Background(), "c1", ReorderRequest{OrderedIDs: []string{"ch1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChapterServiceReorderForeignChapter(t *testing.T) {
	repo := &mockChapterRepo{
		items: map[string]*models.Chapter{
			"ch1": {ID: "ch1", CourseID: "c1", Slug: "basics", Position: 0},
		},
		reorderErr: sql.ErrNoRows,
	}
	svc := newChapterServiceFixture(repo)

	err := svc.Reorder(context.Background(), "c1", ReorderRequest{OrderedIDs: []string{"outsider"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
