package service

import (
	"math"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

// Progress summarises a viewer's standing in one course.
type Progress struct {
	CompletedCount  int
	TotalCount      int
	ProgressPercent int
	// NextLesson is the first lesson in sequence order the viewer has not
	// completed; nil when every lesson is done or the sequence is empty.
	NextLesson *models.Lesson
}

// CalculateProgress derives completion stats from the resolved sequence and
// the viewer's completed lesson id set. Progress is always recomputed from
// these inputs; it is never stored.
func CalculateProgress(sequence []models.Lesson, completedIDs map[string]struct{}) Progress {
	progress := Progress{TotalCount: len(sequence)}
	if len(sequence) == 0 {
		return progress
	}

	for i := range sequence {
		if _, done := completedIDs[sequence[i].ID]; done {
			progress.CompletedCount++
		} else if progress.NextLesson == nil {
			progress.NextLesson = &sequence[i]
		}
	}

	progress.ProgressPercent = int(math.Round(100 * float64(progress.CompletedCount) / float64(len(sequence))))
	return progress
}

// ContinueTarget is the single best place for a viewer to resume learning.
type ContinueTarget struct {
	CourseSlug  string
	CourseTitle string
	// LessonID/LessonSlug identify the lesson to open. Both are empty in the
	// all-complete fallback, where the learner just lands on the course.
	LessonID   string
	LessonSlug string
}

// ResolveContinueTarget walks every published lesson across all courses, in
// the canonical traversal order (courses by creation, then each course's own
// resolved order), and picks the first uncompleted lesson it encounters.
// When the viewer finished everything, it falls back to the course holding
// their most recent completion, with no specific lesson. A viewer with no
// completions at all gets nil: there is nothing to continue.
func ResolveContinueTarget(lessons []models.CourseLesson) *ContinueTarget {
	var latest *models.CourseLesson
	for i := range lessons {
		if lessons[i].CompletedAt == nil {
			continue
		}
		if latest == nil || lessons[i].CompletedAt.After(*latest.CompletedAt) {
			latest = &lessons[i]
		}
	}
	if latest == nil {
		return nil
	}

	for _, lesson := range lessons {
		if lesson.CompletedAt == nil {
			return &ContinueTarget{
				CourseSlug:  lesson.OwnerCourseSlug,
				CourseTitle: lesson.OwnerCourseTitle,
				LessonID:    lesson.ID,
				LessonSlug:  lesson.Slug,
			}
		}
	}

	return &ContinueTarget{
		CourseSlug:  latest.OwnerCourseSlug,
		CourseTitle: latest.OwnerCourseTitle,
	}
}
