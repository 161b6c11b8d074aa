package dto

import (
	"encoding/json"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

// CourseSummary is the catalogue listing entry.
type CourseSummary struct {
	ID          string                `json:"id"`
	Slug        string                `json:"slug"`
	Title       string                `json:"title"`
	Language    string                `json:"language,omitempty"`
	Description string                `json:"description,omitempty"`
	PosterURL   string                `json:"posterUrl,omitempty"`
	Audience    models.CourseAudience `json:"audience"`
	LessonCount int                   `json:"lessonCount"`
}

// CourseOutlineResponse is the learner-facing course page payload: the
// published content tree with per-lesson lock state and viewer progress.
type CourseOutlineResponse struct {
	Course   CourseSummary     `json:"course"`
	Chapters []ChapterOutline  `json:"chapters"`
	Lessons  []LessonEntry     `json:"lessons"`
	Progress *ProgressResponse `json:"progress,omitempty"`
}

// ChapterOutline groups lesson entries under a chapter heading.
type ChapterOutline struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	PosterURL   string        `json:"posterUrl,omitempty"`
	Position    int           `json:"position"`
	Lessons     []LessonEntry `json:"lessons"`
}

// LessonEntry is a sidebar item: lesson identity plus gate verdict. Content
// is never included here; it is fetched per lesson once the gate allows.
type LessonEntry struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Title      string            `json:"title"`
	Kind       models.LessonKind `json:"kind"`
	Position   int               `json:"position"`
	Sequence   int               `json:"sequence"`
	Locked     bool              `json:"locked"`
	LockReason string            `json:"lockReason,omitempty"`
	Completed  bool              `json:"completed"`
}

// LessonContentResponse carries the full lesson once access is granted.
type LessonContentResponse struct {
	ID          string              `json:"id"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Kind        models.LessonKind   `json:"kind"`
	Content     string              `json:"content,omitempty"`
	ContentJSON json.RawMessage     `json:"contentJson,omitempty"`
	VideoURL    string              `json:"videoUrl,omitempty"`
	Sequence    int                 `json:"sequence"`
	Completed   bool                `json:"completed"`
	Next        *LessonRef          `json:"next,omitempty"`
	Previous    *LessonRef          `json:"previous,omitempty"`
}

// LessonRef is a lightweight pointer to an adjacent lesson.
type LessonRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// ProgressResponse is the per-course progress payload.
type ProgressResponse struct {
	CompletedCount  int        `json:"completedCount"`
	TotalCount      int        `json:"totalCount"`
	ProgressPercent int        `json:"progressPercent"`
	NextLesson      *LessonRef `json:"nextLesson,omitempty"`
}

// ContinueLearningResponse names the single best course and lesson to
// resume. LessonID is empty when the viewer finished every started course;
// a nil target means the viewer has no learning history at all.
type ContinueLearningResponse struct {
	CourseSlug  string `json:"courseSlug"`
	CourseTitle string `json:"courseTitle,omitempty"`
	LessonID    string `json:"lessonId,omitempty"`
	LessonSlug  string `json:"lessonSlug,omitempty"`
}
