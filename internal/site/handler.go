// Package site serves the public, locale-prefixed blog pages.
package site

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-blog/inkwell/internal/i18n"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/taxonomy"
	"github.com/inkwell-blog/inkwell/internal/view"
)

// PostReader is the read side of the posts service.
type PostReader interface {
	GetPublishedBySlug(ctx context.Context, locale, slug string) (*posts.Post, error)
	ListPublished(ctx context.Context, locale string, page int) (posts.Page, error)
	ListByTag(ctx context.Context, locale, tagSlug string, page int) (posts.Page, error)
	ListByCategory(ctx context.Context, locale, categorySlug string, page int) (posts.Page, error)
}

// TaxonomyReader is the read side of the taxonomy service.
type TaxonomyReader interface {
	ListTags(ctx context.Context, locale string) ([]taxonomy.Tag, error)
	ListCategories(ctx context.Context, locale string) ([]taxonomy.Category, error)
	FindTag(ctx context.Context, slug string) (*taxonomy.Tag, error)
	FindCategory(ctx context.Context, slug string) (*taxonomy.Category, error)
}

// Handler renders the public pages.
type Handler struct {
	logger    *slog.Logger
	posts     PostReader
	taxonomy  TaxonomyReader
	templates *view.Engine
	csrf      *shared.CSRFManager
	locales   *i18n.Locales
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, posts PostReader, taxonomy TaxonomyReader, templates *view.Engine, csrf *shared.CSRFManager, locales *i18n.Locales) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, posts: posts, taxonomy: taxonomy, templates: templates, csrf: csrf, locales: locales}
}

// MountRoutes registers the /{locale} routes. The locale middleware is applied here.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.locales.Middleware)
	r.Get("/", h.home)
	r.Get("/posts/{slug}", h.post)
	r.Get("/tags/{slug}", h.tag)
	r.Get("/categories/{slug}", h.category)
}

type homeData struct {
	Page       posts.Page
	Tags       []taxonomy.Tag
	Categories []taxonomy.Category
}

type listingData struct {
	Heading string
	Page    posts.Page
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	var data homeData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.posts.ListPublished(ctx, locale, shared.PageFromRequest(r))
		data.Page = page
		return err
	})
	g.Go(func() error {
		tags, err := h.taxonomy.ListTags(ctx, locale)
		data.Tags = tags
		return err
	})
	g.Go(func() error {
		categories, err := h.taxonomy.ListCategories(ctx, locale)
		data.Categories = categories
		return err
	})
	if err := g.Wait(); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/home.html", "Inkwell", data)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPublishedBySlug(r.Context(), i18n.FromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/post.html", post.Title, post)
}

func (h *Handler) tag(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	tag, err := h.taxonomy.FindTag(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page, err := h.posts.ListByTag(r.Context(), locale, tag.Slug, shared.PageFromRequest(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/listing.html", "#"+tag.Name, listingData{Heading: "Tagged " + tag.Name, Page: page})
}

func (h *Handler) category(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	category, err := h.taxonomy.FindCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page, err := h.posts.ListByCategory(r.Context(), locale, category.Slug, shared.PageFromRequest(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/listing.html", category.Name, listingData{Heading: category.Name, Page: page})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, _ := httpx.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("public page", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	h.render(w, r, status, "pages/error.html", http.StatusText(status), map[string]any{"Message": httpx.UserSafeMessage(err)})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.Base(r, h.csrf, title)
	viewData.Locales = h.locales.Supported()
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}
