package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// LocaleSet reports which content locales exist.
type LocaleSet interface {
	IsSupported(code string) bool
	Default() string
}

// Page is one page of a post listing.
type Page struct {
	Posts      []Post
	Pagination shared.Pagination
}

// Service implements post use cases.
type Service struct {
	repo     Repository
	slugs    *SlugAllocator
	views    *ViewCounter
	locales  LocaleSet
	audit    shared.AuditRecorder
	validate *validator.Validate
	reads    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceConfig collects the service dependencies. Views and Audit are optional.
type ServiceConfig struct {
	Repo    Repository
	Locales LocaleSet
	Views   *ViewCounter
	Audit   shared.AuditRecorder
	Logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     cfg.Repo,
		slugs:    NewSlugAllocator(cfg.Repo),
		views:    cfg.Views,
		locales:  cfg.Locales,
		audit:    cfg.Audit,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Create validates in, allocates a slug and stores a new post authored by actor.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (*Post, error) {
	in, err := s.clean(in)
	if err != nil {
		return nil, err
	}
	slug, err := s.slugs.GenerateUniqueSlug(ctx, in.Title, "")
	if err != nil {
		return nil, err
	}
	post := &Post{
		ID:       uuid.NewString(),
		Slug:     slug,
		AuthorID: actor.UserID(),
	}
	s.apply(post, in)
	if err := s.repo.Insert(ctx, post); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "post.create", post)
	return post, nil
}

// Update rewrites a post. Its slug is recomputed from the title; an unchanged title keeps
// the current slug.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in Input) (*Post, error) {
	in, err := s.clean(in)
	if err != nil {
		return nil, err
	}
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := s.slugs.GenerateUniqueSlug(ctx, in.Title, post.ID)
	if err != nil {
		return nil, err
	}
	post.Slug = slug
	s.apply(post, in)
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "post.update", post)
	return post, nil
}

// Delete removes a post permanently.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "post.delete", post)
	return nil
}

// Get returns any post by id, published or not.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPublishedBySlug returns a published post and counts a view. Concurrent reads of the
// same post share one query; each caller still counts as a view. The shared query is not
// bound to any single caller's cancellation, while each caller stops waiting when its own
// ctx is done.
func (s *Service) GetPublishedBySlug(ctx context.Context, locale, slug string) (*Post, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.reads.DoChan(locale+"/"+slug, func() (any, error) {
		return s.repo.GetBySlug(detached, locale, slug, true)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	copied := *res.Val.(*Post)
	post := &copied
	s.views.Record(ctx, post.ID)
	return post, nil
}

// ListPublished lists published posts in locale, newest first.
func (s *Service) ListPublished(ctx context.Context, locale string, page int) (Page, error) {
	return s.list(ctx, ListFilter{Locale: locale, PublishedOnly: true}, page)
}

// ListByTag lists published posts in locale carrying the tag.
func (s *Service) ListByTag(ctx context.Context, locale, tagSlug string, page int) (Page, error) {
	return s.list(ctx, ListFilter{Locale: locale, PublishedOnly: true, TagSlug: tagSlug}, page)
}

// ListByCategory lists published posts in locale filed under the category.
func (s *Service) ListByCategory(ctx context.Context, locale, categorySlug string, page int) (Page, error) {
	return s.list(ctx, ListFilter{Locale: locale, PublishedOnly: true, CategorySlug: categorySlug}, page)
}

// ListAll lists every post in every locale, drafts included.
func (s *Service) ListAll(ctx context.Context, page int) (Page, error) {
	return s.list(ctx, ListFilter{}, page)
}

func (s *Service) list(ctx context.Context, filter ListFilter, page int) (Page, error) {
	p := shared.NewPagination(page, shared.DefaultPerPage, 0)
	filter.Limit = p.PerPage
	filter.Offset = p.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("posts: list: %w", err)
	}
	return Page{Posts: items, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

func (s *Service) clean(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	in.Locale = strings.ToLower(strings.TrimSpace(in.Locale))
	if err := s.validate.Struct(in); err != nil {
		return in, httpx.FromValidation(err)
	}
	if in.Locale == "" {
		in.Locale = s.locales.Default()
	}
	if !s.locales.IsSupported(in.Locale) {
		return in, httpx.BadRequest(httpx.CodeInvalidInput, fmt.Sprintf("locale %q is not supported", in.Locale))
	}
	return in, nil
}

func (s *Service) apply(post *Post, in Input) {
	post.Locale = in.Locale
	post.Title = in.Title
	post.Excerpt = in.Excerpt
	post.Content = in.Content
	post.CoverImage = in.CoverImage
	post.Tags = terms(in.Tags)
	post.Categories = terms(in.Categories)
	if in.Published && post.PublishedAt == nil {
		at := s.now().UTC()
		post.PublishedAt = &at
	}
	if !in.Published {
		post.PublishedAt = nil
	}
	post.Published = in.Published
}

// terms turns display names into terms keyed by slug, dropping blanks and duplicates.
func terms(names []string) []Term {
	out := make([]Term, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, Term{Name: name, Slug: slug})
	}
	return out
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action string, post *Post) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"slug": post.Slug, "method": string(actor.Method())}
	if id := actor.ServiceAccountID(); id != "" {
		meta["service_account_id"] = id
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID(),
		Action:   action,
		Entity:   "post",
		EntityID: post.ID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit post mutation", slog.String("action", action), slog.Any("error", err))
	}
}
