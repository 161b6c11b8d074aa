package models

import "time"

// CourseAudience marks who may consume a course's lessons beyond the free
// preview. Premium is the default; FREE opens every lesson to any signed-in
// learner.
type CourseAudience string

const (
	AudienceFree    CourseAudience = "FREE"
	AudiencePremium CourseAudience = "PREMIUM"
)

// Course is the top level of the content hierarchy. It owns chapters and may
// also own standalone lessons directly.
type Course struct {
	ID          string         `db:"id" json:"id"`
	Slug        string         `db:"slug" json:"slug"`
	Title       string         `db:"title" json:"title"`
	Language    string         `db:"language" json:"language"`
	Description string         `db:"description" json:"description"`
	PosterURL   string         `db:"poster_url" json:"poster_url,omitempty"`
	Audience    CourseAudience `db:"audience" json:"audience"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// IsFree reports whether the course is open to any authenticated learner.
func (c Course) IsFree() bool {
	return c.Audience == AudienceFree
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Language  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseOutline is a course loaded with its full published content tree, the
// input to the sequence resolver.
type CourseOutline struct {
	Course     Course
	Chapters   []ChapterOutline
	Standalone []Lesson
}

// ChapterOutline is a chapter with its lessons attached.
type ChapterOutline struct {
	Chapter Chapter
	Lessons []Lesson
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
