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
)

func newCompletionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCompletionRepositoryMark(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson_completions (user_id, lesson_id, completed_at)")).
		WithArgs("user-1", "lesson-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Mark(context.Background(), "user-1", "lesson-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryMarkConflictIsNoop(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows affected on a repeat mark.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, lesson_id) DO NOTHING")).
		WithArgs("user-1", "lesson-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Mark(context.Background(), "user-1", "lesson-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryUnmark(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lesson_completions WHERE user_id = $1 AND lesson_id = $2")).
		WithArgs("user-1", "lesson-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Unmark(context.Background(), "user-1", "lesson-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryGet(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	completedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"user_id", "lesson_id", "completed_at"}).
		AddRow("user-1", "lesson-1", completedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, lesson_id, completed_at FROM lesson_completions WHERE user_id = $1 AND lesson_id = $2")).
		WithArgs("user-1", "lesson-1").
		WillReturnRows(rows)

	completion, err := repo.Get(context.Background(), "user-1", "lesson-1")
	require.NoError(t, err)
	require.Equal(t, "lesson-1", completion.LessonID)
	require.Equal(t, completedAt, completion.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, lesson_id, completed_at FROM lesson_completions")).
		WithArgs("user-1", "lesson-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "user-1", "lesson-1")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryCompletedLessonIDs(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	rows := sqlmock.NewRows([]string{"lesson_id"}).AddRow("lesson-1").AddRow("lesson-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lc.lesson_id")).
		WithArgs("user-1", "course-1").
		WillReturnRows(rows)

	ids, err := repo.CompletedLessonIDs(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.Equal(t, []string{"lesson-1", "lesson-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRepositoryStatsByCourse(t *testing.T) {
	db, mock, cleanup := newCompletionRepoMock(t)
	defer cleanup()
	repo := NewCompletionRepository(db)

	last := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"user_id", "email", "full_name", "completed_count", "last_completion"}).
		AddRow("user-1", "a@example.com", "Learner A", 3, last).
		AddRow("user-2", "b@example.com", "Learner B", 1, nil)
	// Completions of archived or draft lessons must not count against the
	// published-lesson total, or a learner could exceed 100%.
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(l.course_id, ch.course_id) = $1 AND l.status = 'PUBLISHED'")).
		WithArgs("course-1").
		WillReturnRows(rows)

	stats, err := repo.StatsByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, 3, stats[0].CompletedCount)
	require.Nil(t, stats[1].LastCompletion)
	require.NoError(t, mock.ExpectationsWereMet())
}
