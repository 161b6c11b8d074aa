package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/dto"
	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type learningCourseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindBySlug(ctx context.Context, slug string) (*models.Course, error)
	PublishedLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error)
}

type learningChapterRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Chapter, error)
}

type learningLessonRepository interface {
	ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error)
	ListPublishedWithCompletion(ctx context.Context, userID string) ([]models.CourseLesson, error)
}

type learningCompletionSource interface {
	CompletedLessonIDs(ctx context.Context, userID, courseID string) (map[string]struct{}, error)
}

// LearningService serves the learner-facing catalogue: course outlines with
// gate verdicts, lesson content behind the gate, derived progress and the
// cross-course continue target.
type LearningService struct {
	courses     learningCourseRepository
	chapters    learningChapterRepository
	lessons     learningLessonRepository
	completions learningCompletionSource
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	continueTTL time.Duration
}

// NewLearningService creates a new learning service.
func NewLearningService(courses learningCourseRepository, chapters learningChapterRepository, lessons learningLessonRepository, completions learningCompletionSource, cache *CacheService, metrics *MetricsService, continueTTL time.Duration, logger *zap.Logger) *LearningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if continueTTL <= 0 {
		continueTTL = 5 * time.Minute
	}
	return &LearningService{
		courses:     courses,
		chapters:    chapters,
		lessons:     lessons,
		completions: completions,
		cache:       cache,
		metrics:     metrics,
		continueTTL: continueTTL,
		logger:      logger,
	}
}

// ListCourses returns the public catalogue with published lesson counts.
func (s *LearningService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	ids := make([]string, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID)
	}
	start := time.Now()
	counts, err := s.courses.PublishedLessonCounts(ctx, ids)
	s.metrics.ObserveDBQuery("catalog_lesson_counts", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lessons")
	}

	summaries := make([]dto.CourseSummary, 0, len(courses))
	for _, course := range courses {
		summaries = append(summaries, courseSummary(course, counts[course.ID]))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return summaries, pagination, nil
}

// GetOutline returns the course page payload: the published content tree
// with a gate verdict per lesson and, for signed-in viewers, progress.
func (s *LearningService) GetOutline(ctx context.Context, slug string, viewer models.Viewer) (*dto.CourseOutlineResponse, error) {
	course, outline, err := s.loadOutline(ctx, slug)
	if err != nil {
		return nil, err
	}

	sequence := ResolveSequence(*outline)

	completed := map[string]struct{}{}
	if viewer.Authenticated() {
		completed, err = s.completions.CompletedLessonIDs(ctx, viewer.UserID, course.ID)
		if err != nil {
			return nil, err
		}
	}

	// Sequence index per lesson id drives both the gate and the sidebar
	// numbering.
	indexByID := make(map[string]int, len(sequence))
	for i, lesson := range sequence {
		indexByID[lesson.ID] = i
	}

	entry := func(lesson models.Lesson) dto.LessonEntry {
		seq := indexByID[lesson.ID]
		decision := CanAccess(seq, viewer, *course)
		_, done := completed[lesson.ID]
		return dto.LessonEntry{
			ID:         lesson.ID,
			Slug:       lesson.Slug,
			Title:      lesson.Title,
			Kind:       lesson.Kind,
			Position:   lesson.Position,
			Sequence:   seq,
			Locked:     !decision.Allowed,
			LockReason: string(decision.Reason),
			Completed:  done,
		}
	}

	resp := &dto.CourseOutlineResponse{
		Course:   courseSummary(*course, len(sequence)),
		Chapters: make([]dto.ChapterOutline, 0, len(outline.Chapters)),
		Lessons:  make([]dto.LessonEntry, 0, len(outline.Standalone)),
	}

	for _, chapter := range outline.Chapters {
		chapterEntry := dto.ChapterOutline{
			ID:          chapter.Chapter.ID,
			Slug:        chapter.Chapter.Slug,
			Title:       chapter.Chapter.Title,
			Description: chapter.Chapter.Description,
			PosterURL:   chapter.Chapter.PosterURL,
			Position:    chapter.Chapter.Position,
			Lessons:     make([]dto.LessonEntry, 0, len(chapter.Lessons)),
		}
		for _, lesson := range chapter.Lessons {
			if !lesson.Published() {
				continue
			}
			chapterEntry.Lessons = append(chapterEntry.Lessons, entry(lesson))
		}
		resp.Chapters = append(resp.Chapters, chapterEntry)
	}
	for _, lesson := range outline.Standalone {
		if !lesson.Published() {
			continue
		}
		resp.Lessons = append(resp.Lessons, entry(lesson))
	}

	if viewer.Authenticated() {
		resp.Progress = progressResponse(CalculateProgress(sequence, completed))
	}

	return resp, nil
}

// GetLessonContent returns the full lesson body once the gate allows it.
// Denied requests surface SIGN_IN_REQUIRED or SUBSCRIPTION_REQUIRED so the
// client can route to sign-in or checkout.
func (s *LearningService) GetLessonContent(ctx context.Context, courseSlug, lessonSlug string, viewer models.Viewer) (*dto.LessonContentResponse, error) {
	course, outline, err := s.loadOutline(ctx, courseSlug)
	if err != nil {
		return nil, err
	}

	sequence := ResolveSequence(*outline)

	index := -1
	for i, lesson := range sequence {
		if lesson.Slug == lessonSlug {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}

	decision := CanAccess(index, viewer, *course)
	if !decision.Allowed {
		switch decision.Reason {
		case LockReasonAuth:
			return nil, appErrors.Clone(appErrors.ErrSignInRequired, "sign in to continue this course")
		default:
			return nil, appErrors.Clone(appErrors.ErrSubscriptionRequired, "an active subscription is required for this lesson")
		}
	}

	lesson := sequence[index]

	completed := false
	if viewer.Authenticated() {
		set, err := s.completions.CompletedLessonIDs(ctx, viewer.UserID, course.ID)
		if err != nil {
			return nil, err
		}
		_, completed = set[lesson.ID]
	}

	resp := &dto.LessonContentResponse{
		ID:          lesson.ID,
		Slug:        lesson.Slug,
		Title:       lesson.Title,
		Description: lesson.Description,
		Kind:        lesson.Kind,
		Content:     lesson.Content,
		ContentJSON: lesson.ContentJSON,
		VideoURL:    lesson.VideoURL,
		Sequence:    index,
		Completed:   completed,
	}
	if index > 0 {
		resp.Previous = &dto.LessonRef{ID: sequence[index-1].ID, Slug: sequence[index-1].Slug}
	}
	if index+1 < len(sequence) {
		resp.Next = &dto.LessonRef{ID: sequence[index+1].ID, Slug: sequence[index+1].Slug}
	}

	return resp, nil
}

// GetProgress computes the viewer's progress in one course. Requires a
// signed-in viewer.
func (s *LearningService) GetProgress(ctx context.Context, courseSlug string, viewer models.Viewer) (*dto.ProgressResponse, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to view progress")
	}

	course, outline, err := s.loadOutline(ctx, courseSlug)
	if err != nil {
		return nil, err
	}

	sequence := ResolveSequence(*outline)
	completed, err := s.completions.CompletedLessonIDs(ctx, viewer.UserID, course.ID)
	if err != nil {
		return nil, err
	}

	return progressResponse(CalculateProgress(sequence, completed)), nil
}

// cachedContinueTarget wraps the resolved target for memoisation; Found
// distinguishes "no history" from a cache miss.
type cachedContinueTarget struct {
	Found  bool            `json:"found"`
	Target *ContinueTarget `json:"target,omitempty"`
}

// ContinueLearning picks the single best course and lesson for the viewer to
// resume across the whole catalogue. The result is memoized per viewer and
// invalidated on every completion toggle; the returned bool reports whether
// the memoized copy was used.
func (s *LearningService) ContinueLearning(ctx context.Context, viewer models.Viewer) (*dto.ContinueLearningResponse, bool, error) {
	if !viewer.Authenticated() {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to resume learning")
	}

	key := continueCacheKey(viewer.UserID)
	if s.cache != nil {
		var cached cachedContinueTarget
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return continueResponse(cached.Target), true, nil
		}
	}

	start := time.Now()
	lessons, err := s.lessons.ListPublishedWithCompletion(ctx, viewer.UserID)
	s.metrics.ObserveDBQuery("continue_learning_scan", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learning history")
	}

	target := ResolveContinueTarget(lessons)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedContinueTarget{Found: target != nil, Target: target}, s.continueTTL); err != nil {
			s.logger.Warn("failed to cache continue-learning target", zap.Error(err))
		}
	}

	return continueResponse(target), false, nil
}

// loadOutline fetches a course by slug with its published content tree.
func (s *LearningService) loadOutline(ctx context.Context, slug string) (*models.Course, *models.CourseOutline, error) {
	course, err := s.courses.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	chapters, err := s.chapters.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapters")
	}

	lessons, err := s.lessons.ListByCourse(ctx, course.ID, true)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}

	byChapter := make(map[string][]models.Lesson)
	var standalone []models.Lesson
	for _, lesson := range lessons {
		switch {
		case lesson.ChapterID != nil && *lesson.ChapterID != "":
			byChapter[*lesson.ChapterID] = append(byChapter[*lesson.ChapterID], lesson)
		default:
			standalone = append(standalone, lesson)
		}
	}

	outline := &models.CourseOutline{Course: *course, Standalone: standalone}
	for _, chapter := range chapters {
		outline.Chapters = append(outline.Chapters, models.ChapterOutline{
			Chapter: chapter,
			Lessons: byChapter[chapter.ID],
		})
	}

	return course, outline, nil
}

func courseSummary(course models.Course, lessonCount int) dto.CourseSummary {
	return dto.CourseSummary{
		ID:          course.ID,
		Slug:        course.Slug,
		Title:       course.Title,
		Language:    course.Language,
		Description: course.Description,
		PosterURL:   course.PosterURL,
		Audience:    course.Audience,
		LessonCount: lessonCount,
	}
}

func progressResponse(progress Progress) *dto.ProgressResponse {
	resp := &dto.ProgressResponse{
		CompletedCount:  progress.CompletedCount,
		TotalCount:      progress.TotalCount,
		ProgressPercent: progress.ProgressPercent,
	}
	if progress.NextLesson != nil {
		resp.NextLesson = &dto.LessonRef{ID: progress.NextLesson.ID, Slug: progress.NextLesson.Slug}
	}
	return resp
}

// continueResponse maps a resolved target to the API payload; nil target
// means no learning history and yields a nil payload.
func continueResponse(target *ContinueTarget) *dto.ContinueLearningResponse {
	if target == nil {
		return nil
	}
	return &dto.ContinueLearningResponse{
		CourseSlug:  target.CourseSlug,
		CourseTitle: target.CourseTitle,
		LessonID:    target.LessonID,
		LessonSlug:  target.LessonSlug,
	}
}
