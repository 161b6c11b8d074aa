package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type lessonRepository interface {
	ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	NextPosition(ctx context.Context, courseID, chapterID *string) (int, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
	ReorderInChapter(ctx context.Context, chapterID string, orderedIDs []string) error
	ReorderStandalone(ctx context.Context, courseID string, orderedIDs []string) error
}

type lessonChapterLookup interface {
	FindByID(ctx context.Context, id string) (*models.Chapter, error)
}

// CreateLessonRequest captures fields for creating a lesson. Exactly one of
// CourseID and ChapterID must be set.
type CreateLessonRequest struct {
	CourseID    *string           `json:"course_id"`
	ChapterID   *string           `json:"chapter_id"`
	Slug        string            `json:"slug" validate:"required"`
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Content     string            `json:"content"`
	ContentJSON json.RawMessage   `json:"content_json"`
	Kind        models.LessonKind `json:"kind" validate:"required,oneof=VIDEO TEXT"`
	VideoURL    string            `json:"video_url"`
	Position    *int              `json:"position"`
}

// UpdateLessonRequest modifies lesson fields. The parent cannot be changed
// after creation.
type UpdateLessonRequest struct {
	Slug        string              `json:"slug" validate:"required"`
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Content     string              `json:"content"`
	ContentJSON json.RawMessage     `json:"content_json"`
	Kind        models.LessonKind   `json:"kind" validate:"required,oneof=VIDEO TEXT"`
	VideoURL    string              `json:"video_url"`
	Status      models.LessonStatus `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Position    *int                `json:"position"`
}

// LessonService handles lesson authoring workflows.
type LessonService struct {
	repo      lessonRepository
	courses   chapterCourseLookup
	chapters  lessonChapterLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService creates a new lesson service.
func NewLessonService(repo lessonRepository, courses chapterCourseLookup, chapters lessonChapterLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, courses: courses, chapters: chapters, cache: cache, validator: validate, logger: logger}
}

// ListByCourse returns every lesson of a course, drafts included, for the
// admin surface.
func (s *LessonService) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	lessons, err := s.repo.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Get returns a lesson by identifier.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// Create adds a lesson under a course or a chapter, never both. New lessons
// start as drafts.
func (s *LessonService) Create(ctx context.Context, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	hasCourse := req.CourseID != nil && *req.CourseID != ""
	hasChapter := req.ChapterID != nil && *req.ChapterID != ""
	if hasCourse == hasChapter {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson must belong to exactly one of a course or a chapter")
	}

	if hasCourse {
		if _, err := s.courses.FindByID(ctx, *req.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	} else {
		if _, err := s.chapters.FindByID(ctx, *req.ChapterID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
		}
	}

	req.Slug = normalizeSlug(req.Slug)
	if !validSlug(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must contain only lowercase letters, digits and hyphens")
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		next, err := s.repo.NextPosition(ctx, req.CourseID, req.ChapterID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine lesson position")
		}
		position = next
	}

	lesson := &models.Lesson{
		CourseID:    req.CourseID,
		ChapterID:   req.ChapterID,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		ContentJSON: req.ContentJSON,
		Kind:        req.Kind,
		VideoURL:    req.VideoURL,
		Status:      models.LessonStatusDraft,
		Position:    position,
	}

	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// Update modifies an existing lesson, including status transitions between
// draft, published and archived.
func (s *LessonService) Update(ctx context.Context, id string, req UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	lesson, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Slug = normalizeSlug(req.Slug)
	if !validSlug(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must contain only lowercase letters, digits and hyphens")
	}

	lesson.Slug = req.Slug
	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.Content = req.Content
	lesson.ContentJSON = req.ContentJSON
	lesson.Kind = req.Kind
	lesson.VideoURL = req.VideoURL
	if req.Status != "" {
		lesson.Status = req.Status
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}

	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}

	s.invalidateLearnerCaches(ctx)
	return lesson, nil
}

// Delete removes a lesson and its completion records.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}

	s.invalidateLearnerCaches(ctx)
	return nil
}

// ReorderInChapter rewrites lesson positions within a chapter.
func (s *LessonService) ReorderInChapter(ctx context.Context, chapterID string, req ReorderRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reorder payload")
	}

	if _, err := s.chapters.FindByID(ctx, chapterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
	}

	if err := s.repo.ReorderInChapter(ctx, chapterID, req.OrderedIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "ordered ids do not match the chapter's lessons")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder lessons")
	}

	s.invalidateLearnerCaches(ctx)
	return nil
}

// ReorderStandalone rewrites positions of a course's standalone lessons.
func (s *LessonService) ReorderStandalone(ctx context.Context, courseID string, req ReorderRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reorder payload")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.repo.ReorderStandalone(ctx, courseID, req.OrderedIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "ordered ids do not match the course's standalone lessons")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder lessons")
	}

	s.invalidateLearnerCaches(ctx)
	return nil
}

func (s *LessonService) invalidateLearnerCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "learn:continue:*"); err != nil {
		s.logger.Warn("failed to invalidate continue-learning cache", zap.Error(err))
	}
}
