package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

func publishedLesson(id string, position int) models.Lesson {
	return models.Lesson{ID: id, Slug: id, Title: id, Status: models.LessonStatusPublished, Position: position}
}

func sequenceIDs(lessons []models.Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestResolveSequenceChaptersBeforeStandalone(t *testing.T) {
	outline := models.CourseOutline{
		Course: models.Course{ID: "c1", Slug: "spanish-101"},
		Chapters: []models.ChapterOutline{
			{
				Chapter: models.Chapter{ID: "ch1", Slug: "basics", Position: 0},
				Lessons: []models.Lesson{
					publishedLesson("l2", 1),
					publishedLesson("l1", 0),
				},
			},
		},
		Standalone: []models.Lesson{publishedLesson("l3", 0)},
	}

	sequence := ResolveSequence(outline)
	assert.Equal(t, []string{"l1", "l2", "l3"}, sequenceIDs(sequence))
}

func TestResolveSequenceChapterOrder(t *testing.T) {
	outline := models.CourseOutline{
		Chapters: []models.ChapterOutline{
			{
				Chapter: models.Chapter{ID: "ch2", Position: 5},
				Lessons: []models.Lesson{publishedLesson("b1", 0)},
			},
			{
				Chapter: models.Chapter{ID: "ch1", Position: 1},
				Lessons: []models.Lesson{publishedLesson("a1", 0), publishedLesson("a2", 3)},
			},
		},
	}

	sequence := ResolveSequence(outline)
	assert.Equal(t, []string{"a1", "a2", "b1"}, sequenceIDs(sequence))
}

func TestResolveSequenceSkipsUnpublished(t *testing.T) {
	draft := models.Lesson{ID: "d1", Status: models.LessonStatusDraft, Position: 0}
	archived := models.Lesson{ID: "x1", Status: models.LessonStatusArchived, Position: 1}

	outline := models.CourseOutline{
		Chapters: []models.ChapterOutline{
			{
				Chapter: models.Chapter{ID: "ch1", Position: 0},
				Lessons: []models.Lesson{draft, publishedLesson("l1", 2)},
			},
		},
		Standalone: []models.Lesson{archived, publishedLesson("l2", 2)},
	}

	sequence := ResolveSequence(outline)
	assert.Equal(t, []string{"l1", "l2"}, sequenceIDs(sequence))
}

func TestResolveSequencePositionTiesBreakOnID(t *testing.T) {
	outline := models.CourseOutline{
		Chapters: []models.ChapterOutline{
			{
				Chapter: models.Chapter{ID: "ch1", Position: 0},
				Lessons: []models.Lesson{
					publishedLesson("zz", 4),
					publishedLesson("aa", 4),
				},
			},
		},
	}

	sequence := ResolveSequence(outline)
	assert.Equal(t, []string{"aa", "zz"}, sequenceIDs(sequence))
}

func TestResolveSequenceDeduplicates(t *testing.T) {
	shared := publishedLesson("l1", 0)
	outline := models.CourseOutline{
		Chapters: []models.ChapterOutline{
			{
				Chapter: models.Chapter{ID: "ch1", Position: 0},
				Lessons: []models.Lesson{shared},
			},
		},
		Standalone: []models.Lesson{shared, publishedLesson("l2", 1)},
	}

	sequence := ResolveSequence(outline)
	assert.Equal(t, []string{"l1", "l2"}, sequenceIDs(sequence))
}

func TestResolveSequenceEmptyOutline(t *testing.T) {
	sequence := ResolveSequence(models.CourseOutline{})
	require.NotNil(t, sequence)
	assert.Empty(t, sequence)
}
