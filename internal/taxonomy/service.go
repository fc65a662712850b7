package taxonomy

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/posts"
)

const (
	cacheSize = 64
	cacheTTL  = 5 * time.Minute
)

// Service lists taxonomy terms through a short-lived cache.
type Service struct {
	repo       Repository
	tags       *expirable.LRU[string, []Tag]
	categories *expirable.LRU[string, []Category]
	validate   *validator.Validate
}

// NewService constructs a Service. ttl <= 0 uses the default.
func NewService(repo Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = cacheTTL
	}
	return &Service{
		repo:       repo,
		tags:       expirable.NewLRU[string, []Tag](cacheSize, nil, ttl),
		categories: expirable.NewLRU[string, []Category](cacheSize, nil, ttl),
		validate:   validator.New(),
	}
}

// ListTags returns tags with post counts for locale.
func (s *Service) ListTags(ctx context.Context, locale string) ([]Tag, error) {
	if cached, ok := s.tags.Get(locale); ok {
		return cached, nil
	}
	tags, err := s.repo.ListTags(ctx, locale)
	if err != nil {
		return nil, err
	}
	s.tags.Add(locale, tags)
	return tags, nil
}

// ListCategories returns categories with post counts for locale.
func (s *Service) ListCategories(ctx context.Context, locale string) ([]Category, error) {
	if cached, ok := s.categories.Get(locale); ok {
		return cached, nil
	}
	categories, err := s.repo.ListCategories(ctx, locale)
	if err != nil {
		return nil, err
	}
	s.categories.Add(locale, categories)
	return categories, nil
}

// FindTag fetches a tag by slug.
func (s *Service) FindTag(ctx context.Context, slug string) (*Tag, error) {
	return s.repo.FindTag(ctx, slug)
}

// FindCategory fetches a category by slug.
func (s *Service) FindCategory(ctx context.Context, slug string) (*Category, error) {
	return s.repo.FindCategory(ctx, slug)
}

// CreateTag creates a tag named in.Name.
func (s *Service) CreateTag(ctx context.Context, in CreateTagInput) (*Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.FromValidation(err)
	}
	slug := posts.Slugify(in.Name)
	if slug == "" {
		return nil, httpx.BadRequest(httpx.CodeInvalidInput, "name must contain letters or digits")
	}
	tag := &Tag{ID: uuid.NewString(), Name: in.Name, Slug: slug}
	if err := s.repo.InsertTag(ctx, tag); err != nil {
		return nil, err
	}
	s.tags.Purge()
	return tag, nil
}

// Invalidate drops cached listings after posts change.
func (s *Service) Invalidate() {
	s.tags.Purge()
	s.categories.Purge()
}
