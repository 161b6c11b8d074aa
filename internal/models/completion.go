package models

import "time"

// LessonCompletion records that a user finished a lesson. The (user, lesson)
// pair is unique; a lesson is either completed or not for a given user.
type LessonCompletion struct {
	UserID      string    `db:"user_id" json:"user_id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// CourseCompletionStat aggregates one learner's completion count for a
// course, used by progress report exports.
type CourseCompletionStat struct {
	UserID         string     `db:"user_id" json:"user_id"`
	Email          string     `db:"email" json:"email"`
	FullName       string     `db:"full_name" json:"full_name"`
	CompletedCount int        `db:"completed_count" json:"completed_count"`
	LastCompletion *time.Time `db:"last_completion" json:"last_completion,omitempty"`
}
