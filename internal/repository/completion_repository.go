package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

// CompletionRepository handles persistence of lesson completions.
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository constructs the repository.
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// CompletedLessonIDs returns the ids of every lesson within the course the
// user has completed.
func (r *CompletionRepository) CompletedLessonIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	const query = `SELECT lc.lesson_id
        FROM lesson_completions lc
        JOIN lessons l ON l.id = lc.lesson_id
        LEFT JOIN chapters ch ON ch.id = l.chapter_id
        WHERE lc.user_id = $1 AND COALESCE(l.course_id, ch.course_id) = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID, courseID); err != nil {
		return nil, fmt.Errorf("list completed lesson ids: %w", err)
	}
	return ids, nil
}

// Mark records a completion. Re-marking an already completed lesson is a
// no-op; the original timestamp is kept.
func (r *CompletionRepository) Mark(ctx context.Context, userID, lessonID string) error {
	const query = `INSERT INTO lesson_completions (user_id, lesson_id, completed_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, lesson_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, lessonID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark completion: %w", err)
	}
	return nil
}

// Unmark removes a completion. Unmarking a lesson that was never completed
// is a no-op, not an error.
func (r *CompletionRepository) Unmark(ctx context.Context, userID, lessonID string) error {
	const query = `DELETE FROM lesson_completions WHERE user_id = $1 AND lesson_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, lessonID); err != nil {
		return fmt.Errorf("unmark completion: %w", err)
	}
	return nil
}

// Get returns the completion record for the pair, or sql.ErrNoRows.
func (r *CompletionRepository) Get(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error) {
	const query = `SELECT user_id, lesson_id, completed_at FROM lesson_completions WHERE user_id = $1 AND lesson_id = $2`
	var completion models.LessonCompletion
	if err := r.db.GetContext(ctx, &completion, query, userID, lessonID); err != nil {
		return nil, err
	}
	return &completion, nil
}

// StatsByCourse aggregates per-learner completion counts for one course,
// feeding progress report exports. Only completions of currently published
// lessons count; the report's total is published lessons, so counting
// since-archived completions would push a learner past 100%.
func (r *CompletionRepository) StatsByCourse(ctx context.Context, courseID string) ([]models.CourseCompletionStat, error) {
	const query = `SELECT u.id AS user_id, u.email, u.full_name,
        COUNT(lc.lesson_id) AS completed_count, MAX(lc.completed_at) AS last_completion
        FROM users u
        JOIN lesson_completions lc ON lc.user_id = u.id
        JOIN lessons l ON l.id = lc.lesson_id
        LEFT JOIN chapters ch ON ch.id = l.chapter_id
        WHERE COALESCE(l.course_id, ch.course_id) = $1 AND l.status = 'PUBLISHED'
        GROUP BY u.id, u.email, u.full_name
        ORDER BY completed_count DESC, u.email ASC`
	var stats []models.CourseCompletionStat
	if err := r.db.SelectContext(ctx, &stats, query, courseID); err != nil {
		return nil, fmt.Errorf("course completion stats: %w", err)
	}
	return stats, nil
}
