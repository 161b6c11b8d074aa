package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

const lessonColumns = `id, course_id, chapter_id, slug, title, description, content, content_json, kind, video_url, status, position, created_at, updated_at`

// LessonRepository handles persistence of lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByCourse returns every lesson reachable from the course: chapter
// lessons and standalone lessons. When publishedOnly is set, drafts and
// archived lessons are excluded.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
        WHERE (course_id = $1 OR chapter_id IN (SELECT id FROM chapters WHERE course_id = $1))`, lessonColumns)
	args := []interface{}{courseID}
	if publishedOnly {
		query += " AND status = $2"
		args = append(args, models.LessonStatusPublished)
	}
	query += " ORDER BY position ASC, id ASC"
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list course lessons: %w", err)
	}
	return lessons, nil
}

// FindByID returns a lesson by its ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindBySlugInCourse resolves a lesson by slug within a course's scope,
// covering both chapter lessons and standalone lessons.
func (r *LessonRepository) FindBySlugInCourse(ctx context.Context, courseID, slug string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
        WHERE slug = $2 AND (course_id = $1 OR chapter_id IN (SELECT id FROM chapters WHERE course_id = $1))
        LIMIT 1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, courseID, slug); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// OwnerCourseID resolves the course a lesson ultimately belongs to,
// regardless of whether it hangs off a chapter or the course directly.
func (r *LessonRepository) OwnerCourseID(ctx context.Context, lessonID string) (string, error) {
	const query = `SELECT COALESCE(l.course_id, ch.course_id)
        FROM lessons l
        LEFT JOIN chapters ch ON ch.id = l.chapter_id
        WHERE l.id = $1`
	var courseID string
	if err := r.db.GetContext(ctx, &courseID, query, lessonID); err != nil {
		return "", err
	}
	return courseID, nil
}

// NextPosition returns the next free ordering key among siblings.
func (r *LessonRepository) NextPosition(ctx context.Context, courseID, chapterID *string) (int, error) {
	var position int
	var err error
	switch {
	case chapterID != nil:
		err = r.db.GetContext(ctx, &position, `SELECT COALESCE(MAX(position) + 1, 0) FROM lessons WHERE chapter_id = $1`, *chapterID)
	case courseID != nil:
		err = r.db.GetContext(ctx, &position, `SELECT COALESCE(MAX(position) + 1, 0) FROM lessons WHERE course_id = $1`, *courseID)
	default:
		return 0, fmt.Errorf("next lesson position: parent missing")
	}
	if err != nil {
		return 0, fmt.Errorf("next lesson position: %w", err)
	}
	return position, nil
}

// Create persists a new lesson record.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	if lesson.Status == "" {
		lesson.Status = models.LessonStatusDraft
	}
	const query = `INSERT INTO lessons (id, course_id, chapter_id, slug, title, description, content, content_json, kind, video_url, status, position, created_at, updated_at)
        VALUES (:id, :course_id, :chapter_id, :slug, :title, :description, :content, :content_json, :kind, :video_url, :status, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update rewrites lesson content and metadata.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET slug = :slug, title = :title, description = :description, content = :content,
        content_json = :content_json, kind = :kind, video_url = :video_url, status = :status, position = :position,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson; its completions cascade via foreign keys.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

// ReorderInChapter rewrites lesson positions within a chapter.
func (r *LessonRepository) ReorderInChapter(ctx context.Context, chapterID string, orderedIDs []string) error {
	return r.reorder(ctx, `UPDATE lessons SET position = $3, updated_at = $4 WHERE id = $1 AND chapter_id = $2`, chapterID, orderedIDs)
}

// ReorderStandalone rewrites positions of a course's standalone lessons.
func (r *LessonRepository) ReorderStandalone(ctx context.Context, courseID string, orderedIDs []string) error {
	return r.reorder(ctx, `UPDATE lessons SET position = $3, updated_at = $4 WHERE id = $1 AND course_id = $2`, courseID, orderedIDs)
}

func (r *LessonRepository) reorder(ctx context.Context, query, parentID string, orderedIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for position, id := range orderedIDs {
		res, err := tx.ExecContext(ctx, query, id, parentID, position, now)
		if err != nil {
			return fmt.Errorf("reorder lesson %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reorder lesson %s: %w", id, err)
		}
		if affected == 0 {
			return fmt.Errorf("reorder lesson %s: %w", id, sql.ErrNoRows)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// ListPublishedWithCompletion returns every published lesson across all
// courses tagged with its owning course and the viewer's completion, in the
// canonical continue-learning traversal order: courses by creation then id,
// chapters by position, standalone lessons after chapters.
func (r *LessonRepository) ListPublishedWithCompletion(ctx context.Context, userID string) ([]models.CourseLesson, error) {
	query := `SELECT l.id, l.course_id, l.chapter_id, l.slug, l.title, l.kind, l.status, l.position,
        co.id AS owner_course_id, co.slug AS owner_course_slug, co.title AS owner_course_title,
        ch.position AS chapter_position, lc.completed_at
        FROM lessons l
        LEFT JOIN chapters ch ON ch.id = l.chapter_id
        JOIN courses co ON co.id = COALESCE(l.course_id, ch.course_id)
        LEFT JOIN lesson_completions lc ON lc.lesson_id = l.id AND lc.user_id = $1
        WHERE l.status = $2
        ORDER BY co.created_at ASC, co.id ASC, ch.position ASC NULLS LAST, ch.id ASC NULLS LAST, l.position ASC, l.id ASC`
	var lessons []models.CourseLesson
	if err := r.db.SelectContext(ctx, &lessons, query, userID, models.LessonStatusPublished); err != nil {
		return nil, fmt.Errorf("list published lessons with completion: %w", err)
	}
	return lessons, nil
}
