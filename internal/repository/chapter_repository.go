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

const chapterColumns = `id, course_id, slug, title, description, poster_url, position, created_at, updated_at`

// ChapterRepository handles persistence of chapters.
type ChapterRepository struct {
	db *sqlx.DB
}

// NewChapterRepository constructs the repository.
func NewChapterRepository(db *sqlx.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// ListByCourse returns a course's chapters ordered by position.
func (r *ChapterRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Chapter, error) {
	query := fmt.Sprintf(`SELECT %s FROM chapters WHERE course_id = $1 ORDER BY position ASC, id ASC`, chapterColumns)
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, query, courseID); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// FindByID returns a chapter by its ID.
func (r *ChapterRepository) FindByID(ctx context.Context, id string) (*models.Chapter, error) {
	query := fmt.Sprintf(`SELECT %s FROM chapters WHERE id = $1`, chapterColumns)
	var chapter models.Chapter
	if err := r.db.GetContext(ctx, &chapter, query, id); err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ExistsSlug checks whether another chapter in the same course uses the slug.
func (r *ChapterRepository) ExistsSlug(ctx context.Context, courseID, slug, excludeID string) (bool, error) {
	query := "SELECT 1 FROM chapters WHERE course_id = $1 AND slug = $2"
	args := []interface{}{courseID, slug}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check chapter slug: %w", err)
	}
	return true, nil
}

// NextPosition returns the next free ordering key within a course.
func (r *ChapterRepository) NextPosition(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COALESCE(MAX(position) + 1, 0) FROM chapters WHERE course_id = $1`
	var position int
	if err := r.db.GetContext(ctx, &position, query, courseID); err != nil {
		return 0, fmt.Errorf("next chapter position: %w", err)
	}
	return position, nil
}

// Create persists a new chapter record.
func (r *ChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if chapter.CreatedAt.IsZero() {
		chapter.CreatedAt = now
	}
	chapter.UpdatedAt = now
	const query = `INSERT INTO chapters (id, course_id, slug, title, description, poster_url, position, created_at, updated_at)
        VALUES (:id, :course_id, :slug, :title, :description, :poster_url, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, chapter); err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}
	return nil
}

// Update rewrites chapter metadata.
func (r *ChapterRepository) Update(ctx context.Context, chapter *models.Chapter) error {
	chapter.UpdatedAt = time.Now().UTC()
	const query = `UPDATE chapters SET slug = :slug, title = :title, description = :description,
        poster_url = :poster_url, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, chapter); err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	return nil
}

// Delete removes a chapter; its lessons cascade via foreign keys.
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM chapters WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}

// Reorder rewrites chapter positions within a course to match the given id
// order. Runs in a single transaction so a partial drag-and-drop never
// persists.
func (r *ChapterRepository) Reorder(ctx context.Context, courseID string, orderedIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE chapters SET position = $3, updated_at = $4 WHERE id = $1 AND course_id = $2`
	now := time.Now().UTC()
	for position, id := range orderedIDs {
		res, err := tx.ExecContext(ctx, query, id, courseID, position, now)
		if err != nil {
			return fmt.Errorf("reorder chapter %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reorder chapter %s: %w", id, err)
		}
		if affected == 0 {
			return fmt.Errorf("reorder chapter %s: %w", id, sql.ErrNoRows)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}
