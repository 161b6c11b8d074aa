package service

import (
	"sort"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

// ResolveSequence flattens a course's published content into the single
// learner-facing lesson order: chapters by position, each chapter's
// published lessons by position, then the course's standalone published
// lessons by position. The result drives both the navigation sidebar and
// the access gate's positional check, so the first element is the free
// preview lesson whichever parent it belongs to.
//
// The function is pure and total: no lesson is lost or duplicated, ties
// break on id so the order is deterministic.
func ResolveSequence(outline models.CourseOutline) []models.Lesson {
	chapters := make([]models.ChapterOutline, len(outline.Chapters))
	copy(chapters, outline.Chapters)
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].Chapter.Position != chapters[j].Chapter.Position {
			return chapters[i].Chapter.Position < chapters[j].Chapter.Position
		}
		return chapters[i].Chapter.ID < chapters[j].Chapter.ID
	})

	sequence := make([]models.Lesson, 0)
	seen := make(map[string]struct{})

	appendPublished := func(lessons []models.Lesson) {
		ordered := make([]models.Lesson, len(lessons))
		copy(ordered, lessons)
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].Position != ordered[j].Position {
				return ordered[i].Position < ordered[j].Position
			}
			return ordered[i].ID < ordered[j].ID
		})
		for _, lesson := range ordered {
			if !lesson.Published() {
				continue
			}
			if _, dup := seen[lesson.ID]; dup {
				continue
			}
			seen[lesson.ID] = struct{}{}
			sequence = append(sequence, lesson)
		}
	}

	for _, chapter := range chapters {
		appendPublished(chapter.Lessons)
	}
	appendPublished(outline.Standalone)

	return sequence
}
