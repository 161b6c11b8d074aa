package models

import (
	"encoding/json"
	"time"
)

// LessonKind distinguishes video lessons from text lessons.
type LessonKind string

const (
	LessonKindVideo LessonKind = "VIDEO"
	LessonKindText  LessonKind = "TEXT"
)

// LessonStatus gates learner visibility. Only published lessons are ever
// served on the learner surface.
type LessonStatus string

const (
	LessonStatusDraft     LessonStatus = "DRAFT"
	LessonStatusPublished LessonStatus = "PUBLISHED"
	LessonStatusArchived  LessonStatus = "ARCHIVED"
)

// Lesson belongs to exactly one of a course (standalone) or a chapter.
// Position orders it among siblings sharing the same parent.
type Lesson struct {
	ID          string          `db:"id" json:"id"`
	CourseID    *string         `db:"course_id" json:"course_id,omitempty"`
	ChapterID   *string         `db:"chapter_id" json:"chapter_id,omitempty"`
	Slug        string          `db:"slug" json:"slug"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Content     string          `db:"content" json:"content,omitempty"`
	ContentJSON json.RawMessage `db:"content_json" json:"content_json,omitempty"`
	Kind        LessonKind      `db:"kind" json:"kind"`
	VideoURL    string          `db:"video_url" json:"video_url,omitempty"`
	Status      LessonStatus    `db:"status" json:"status"`
	Position    int             `db:"position" json:"position"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Published reports whether the lesson is visible to learners.
func (l Lesson) Published() bool {
	return l.Status == LessonStatusPublished
}

// CourseLesson is a lesson joined with its owning course, used by the
// cross-course continue-learning traversal.
type CourseLesson struct {
	Lesson
	OwnerCourseID    string     `db:"owner_course_id" json:"owner_course_id"`
	OwnerCourseSlug  string     `db:"owner_course_slug" json:"owner_course_slug"`
	OwnerCourseTitle string     `db:"owner_course_title" json:"owner_course_title"`
	ChapterPosition  *int       `db:"chapter_position" json:"chapter_position,omitempty"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
