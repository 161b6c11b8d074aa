package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Kiog-Aser/CourseThing/internal/models"
)

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLessonRepositoryListByCoursePublishedOnly(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "course_id", "chapter_id", "slug", "title", "description", "content", "content_json", "kind", "video_url", "status", "position", "created_at", "updated_at"}).
		AddRow("l1", "c1", nil, "intro", "Intro", "", "", nil, "TEXT", "", "PUBLISHED", 0, now, now)
	mock.ExpectQuery(`SELECT .+ FROM lessons\s+WHERE \(course_id = \$1 OR chapter_id IN`).
		WithArgs("c1", models.LessonStatusPublished).
		WillReturnRows(rows)

	lessons, err := repo.ListByCourse(context.Background(), "c1", true)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	require.Equal(t, "intro", lessons[0].Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryOwnerCourseID(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(l.course_id, ch.course_id)")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("c1"))

	courseID, err := repo.OwnerCourseID(context.Background(), "l1")
	require.NoError(t, err)
	require.Equal(t, "c1", courseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryReorderInChapter(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	update := regexp.QuoteMeta("UPDATE lessons SET position = $3, updated_at = $4 WHERE id = $1 AND chapter_id = $2")
	mock.ExpectExec(update).
		WithArgs("l2", "ch1", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).
		WithArgs("l1", "ch1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReorderInChapter(context.Background(), "ch1", []string{"l2", "l1"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryReorderRejectsForeignLesson(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lessons SET position = $3, updated_at = $4 WHERE id = $1 AND chapter_id = $2")).
		WithArgs("outsider", "ch1", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReorderInChapter(context.Background(), "ch1", []string{"outsider"})
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListPublishedWithCompletion(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	completedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "course_id", "chapter_id", "slug", "title", "kind", "status", "position", "owner_course_id", "owner_course_slug", "owner_course_title", "chapter_position", "completed_at"}).
		AddRow("l1", nil, "ch1", "intro", "Intro", "TEXT", "PUBLISHED", 0, "c1", "spanish-101", "Spanish 101", 0, completedAt).
		AddRow("l2", "c1", nil, "extra", "Extra", "TEXT", "PUBLISHED", 0, "c1", "spanish-101", "Spanish 101", nil, nil)
	// The id tie-breaks keep the traversal deterministic when chapters or
	// lessons share a position.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY co.created_at ASC, co.id ASC, ch.position ASC NULLS LAST, ch.id ASC NULLS LAST, l.position ASC, l.id ASC")).
		WithArgs("user-1", models.LessonStatusPublished).
		WillReturnRows(rows)

	lessons, err := repo.ListPublishedWithCompletion(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	require.Equal(t, "spanish-101", lessons[0].OwnerCourseSlug)
	require.NotNil(t, lessons[0].CompletedAt)
	require.Nil(t, lessons[1].CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
