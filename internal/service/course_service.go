package service

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kiog-Aser/CourseThing/internal/models"
	appErrors "github.com/Kiog-Aser/CourseThing/pkg/errors"
)

// slugPattern constrains slugs to URL-safe lowercase segments.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func normalizeSlug(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func validSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindBySlug(ctx context.Context, slug string) (*models.Course, error)
	ExistsSlug(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest captures fields for creating a course.
type CreateCourseRequest struct {
	Slug        string `json:"slug" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Language    string `json:"language"`
	Description string `json:"description"`
	PosterURL   string `json:"poster_url"`
	// Audience defaults to premium when omitted.
	Audience models.CourseAudience `json:"audience" validate:"omitempty,oneof=FREE PREMIUM"`
}

// UpdateCourseRequest modifies course fields.
type UpdateCourseRequest struct {
	Slug        string                `json:"slug" validate:"required"`
	Title       string                `json:"title" validate:"required"`
	Language    string                `json:"language"`
	Description string                `json:"description"`
	PosterURL   string                `json:"poster_url"`
	Audience    models.CourseAudience `json:"audience" validate:"omitempty,oneof=FREE PREMIUM"`
}

// CourseService handles course authoring workflows.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a new course service.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns paginated courses for the admin surface.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
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
	return courses, pagination, nil
}

// Get returns a course by identifier.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course ensuring slug uniqueness.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	req.Slug = normalizeSlug(req.Slug)
	if !validSlug(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsSlug(ctx, req.Slug, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course slug already exists")
	}

	audience := req.Audience
	if audience == "" {
		audience = models.AudiencePremium
	}

	course := &models.Course{
		Slug:        req.Slug,
		Title:       req.Title,
		Language:    req.Language,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Audience:    audience,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	req.Slug = normalizeSlug(req.Slug)
	if !validSlug(req.Slug) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsSlug(ctx, req.Slug, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course slug already exists")
	}

	course.Slug = req.Slug
	course.Title = req.Title
	course.Language = req.Language
	course.Description = req.Description
	course.PosterURL = req.PosterURL
	if req.Audience != "" {
		course.Audience = req.Audience
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateLearnerCaches(ctx)
	return course, nil
}

// Delete removes a course. The schema cascades to chapters, lessons and
// their completions.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.invalidateLearnerCaches(ctx)
	return nil
}

// invalidateLearnerCaches drops memoized continue-learning targets; content
// mutations change the traversal for every learner.
func (s *CourseService) invalidateLearnerCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "learn:continue:*"); err != nil {
		s.logger.Warn("failed to invalidate continue-learning cache", zap.Error(err))
	}
}
