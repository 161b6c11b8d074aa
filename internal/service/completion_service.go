package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

// continueCacheKey addresses the memoized continue-learning target for one
// viewer.
func continueCacheKey(userID string) string {
	return fmt.Sprintf("learn:continue:%s", userID)
}

type completionRepository interface {
	CompletedLessonIDs(ctx context.Context, userID, courseID string) ([]string, error)
	Mark(ctx context.Context, userID, lessonID string) error
	Unmark(ctx context.Context, userID, lessonID string) error
	Get(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error)
}

type completionLessonLookup interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

// CompletionService toggles per-lesson completion facts for learners.
type CompletionService struct {
	repo    completionRepository
	lessons completionLessonLookup
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCompletionService creates a new completion service.
func NewCompletionService(repo completionRepository, lessons completionLessonLookup, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{repo: repo, lessons: lessons, cache: cache, metrics: metrics, logger: logger}
}

// Mark records that the user finished the lesson. Marking twice is a no-op:
// the original completion timestamp is kept.
func (s *CompletionService) Mark(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if !lesson.Published() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}

	if err := s.repo.Mark(ctx, userID, lessonID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark lesson complete")
	}

	completion, err := s.repo.Get(ctx, userID, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion")
	}

	s.metrics.RecordCompletionToggle("mark")
	s.invalidateViewerCaches(ctx, userID)
	return completion, nil
}

// Unmark removes the completion fact. Unmarking a lesson that was never
// completed is a no-op.
func (s *CompletionService) Unmark(ctx context.Context, userID, lessonID string) error {
	if _, err := s.lessons.FindByID(ctx, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	if err := s.repo.Unmark(ctx, userID, lessonID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unmark lesson")
	}

	s.metrics.RecordCompletionToggle("unmark")
	s.invalidateViewerCaches(ctx, userID)
	return nil
}

// CompletedLessonIDs returns the set of lessons the user completed within a
// course, as a membership map.
func (s *CompletionService) CompletedLessonIDs(ctx context.Context, userID, courseID string) (map[string]struct{}, error) {
	ids, err := s.repo.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completions")
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// invalidateViewerCaches drops the viewer's memoized continue-learning
// target. Derived progress is never cached, so this is the only entry to
// clear.
func (s *CompletionService) invalidateViewerCaches(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, continueCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate continue-learning cache", zap.String("user_id", userID), zap.Error(err))
	}
}
