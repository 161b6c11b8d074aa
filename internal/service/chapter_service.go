package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

type chapterRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Chapter, error)
	FindByID(ctx context.Context, id string) (*models.Chapter, error)
	ExistsSlug(ctx context.Context, courseID, slug, excludeID string) (bool, error)
	NextPosition(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, chapter *models.Chapter) error
	Update(ctx context.Context, chapter *models.Chapter) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, courseID string, orderedIDs []string) error
}

type chapterCourseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateChapterRequest captures fields for creating a chapter.
type CreateChapterRequest struct {
	CourseID    string `json:"course_id" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	PosterURL   string `json:"poster_url"`
	// Position is optional; omitted means append after the current last
	// chapter.
	Position *int `json:"position"`
}

// UpdateChapterRequest modifies chapter fields.
type UpdateChapterRequest struct {
	Slug        string `json:"slug" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	PosterURL   string `json:"poster_url"`
	Position    *int   `json:"position"`
}

// ReorderRequest replaces the sibling ordering with the given id sequence.
type ReorderRequest struct {
	OrderedIDs []string `json:"ordered_ids" validate:"required,min=1"`
}

// ChapterService handles chapter authoring workflows.
type ChapterService struct {
	repo      chapterRepository
	courses   chapterCourseLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChapterService creates a new chapter service.
func NewChapterService(repo chapterRepository, courses chapterCourseLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ChapterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChapterService{repo: repo, courses: courses, cache: cache, validator: validate, logger: logger}
}

// ListByCourse returns the chapters of a course in position order.
func (s *ChapterService) ListByCourse(ctx context.Context, courseID string) ([]models.Chapter, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	chapters, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapters")
	}
	return chapters, nil
}

// Get returns a chapter by identifier.
func (s *ChapterService) Get(ctx context.Context, id string) (*models.Chapter, error) {
	chapter, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chapter")
	}
	return chapter, nil
}

// Create adds a chapter to a course, appending at the end unless a position
// is given.
func (s *ChapterService) Create(ctx context.Context, req CreateChapterRequest) (*models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chapter payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	req.Slug = normalizeSlug(req.Slug)
	if !validSlug(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsSlug(ctx, req.CourseID, req.Slug, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check chapter slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "chapter slug already exists in course")
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		position, err = s.repo.NextPosition(ctx, req.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine chapter position")
		}
	}

	chapter := &models.Chapter{
		CourseID:    req.CourseID,
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Position:    position,
	}

	if err := s.repo.Create(ctx, chapter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create chapter")
	}

	s.invalidateLearnerCaches(ctx)
	return chapter, nil
}

// Update modifies an existing chapter.
func (s *ChapterService) Update(ctx context.Context, id string, req UpdateChapterRequest) (*models.Chapter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chapter payload")
	}

	chapter, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Slug = normalizeSlug(req.Slug)
	if !validSlug(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsSlug(ctx, chapter.CourseID, req.Slug, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check chapter slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "chapter slug already exists in course")
	}

	chapter.Slug = req.Slug
	chapter.Title = req.Title
	chapter.Description = req.Description
	chapter.PosterURL = req.PosterURL
	if req.Position != nil {
		chapter.Position = *req.Position
	}

	if err := s.repo.Update(ctx, chapter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update chapter")
	}

	s.invalidateLearnerCaches(ctx)
	return chapter, nil
}

// Delete removes a chapter and, through the schema, its lessons.
func (s *ChapterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete chapter")
	}

	s.invalidateLearnerCaches(ctx)
	return nil
}

// Reorder rewrites chapter positions within a course to match the given id
// order. Every chapter of the course must appear exactly once.
func (s *ChapterService) Reorder(ctx context.Context, courseID string, req ReorderRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reorder payload")
	}

	chapters, err := s.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if len(req.OrderedIDs) != len(chapters) {
		return appErrors.Clone(appErrors.ErrValidation, "ordered ids must cover every chapter of the course")
	}

	if err := s.repo.Reorder(ctx, courseID, req.OrderedIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "ordered ids do not match the course's chapters")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder chapters")
	}

	s.invalidateLearnerCaches(ctx)
	return nil
}

func (s *ChapterService) invalidateLearnerCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "learn:continue:*"); err != nil {
		s.logger.Warn("failed to invalidate continue-learning cache", zap.Error(err))
	}
}
