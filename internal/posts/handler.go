package posts

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/view"
)

// Handler serves the post admin pages and the post API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	gate      *auth.Gate
	locales   []string
	onChange  func()
}

// HandlerConfig collects handler dependencies. OnChange runs after every successful
// mutation.
type HandlerConfig struct {
	Logger    *slog.Logger
	Service   *Service
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Gate      *auth.Gate
	Locales   []string
	OnChange  func()
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func() {}
	}
	return &Handler{
		logger:    logger,
		service:   cfg.Service,
		templates: cfg.Templates,
		csrf:      cfg.CSRF,
		gate:      cfg.Gate,
		locales:   cfg.Locales,
		onChange:  onChange,
	}
}

// MountAdmin registers /admin/posts pages. The router must already require an admin.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/", h.adminList)
	r.Get("/new", h.adminNew)
	r.Post("/", h.adminCreate)
	r.Get("/{id}/edit", h.adminEdit)
	r.Post("/{id}", h.adminUpdate)
	r.Post("/{id}/delete", h.adminDelete)
}

type formData struct {
	ID     string
	Input  Input
	Tags   string
	Cats   string
	Errors map[string]string
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListAll(r.Context(), shared.PageFromRequest(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_posts.html", "Posts", page)
}

func (h *Handler) adminNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/admin_post_form.html", "New post", formData{Input: Input{Locale: firstOr(h.locales, "")}})
}

func (h *Handler) adminCreate(w http.ResponseWriter, r *http.Request) {
	in, form := h.parseForm(r)
	p, _ := auth.PrincipalFromContext(r.Context())
	post, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		h.renderFormError(w, r, "New post", form, err)
		return
	}
	h.onChange()
	h.redirectWithFlash(w, r, "/admin/posts", "success", "Created "+post.Title)
}

func (h *Handler) adminEdit(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	form := formData{
		ID: post.ID,
		Input: Input{
			Title:      post.Title,
			Excerpt:    post.Excerpt,
			Content:    post.Content,
			CoverImage: post.CoverImage,
			Locale:     post.Locale,
			Published:  post.Published,
		},
		Tags: joinTerms(post.Tags),
		Cats: joinTerms(post.Categories),
	}
	h.render(w, r, http.StatusOK, "pages/admin_post_form.html", "Edit post", form)
}

func (h *Handler) adminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, form := h.parseForm(r)
	form.ID = id
	p, _ := auth.PrincipalFromContext(r.Context())
	post, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		h.renderFormError(w, r, "Edit post", form, err)
		return
	}
	h.onChange()
	h.redirectWithFlash(w, r, "/admin/posts", "success", "Saved "+post.Title)
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.redirectWithFlash(w, r, "/admin/posts", "error", httpx.UserSafeMessage(err))
		return
	}
	h.onChange()
	h.redirectWithFlash(w, r, "/admin/posts", "success", "Post deleted")
}

func (h *Handler) parseForm(r *http.Request) (Input, formData) {
	_ = r.ParseForm()
	in := Input{
		Title:      r.PostFormValue("title"),
		Excerpt:    r.PostFormValue("excerpt"),
		Content:    r.PostFormValue("content"),
		CoverImage: r.PostFormValue("cover_image"),
		Locale:     r.PostFormValue("locale"),
		Published:  r.PostFormValue("published") == "on",
		Tags:       splitList(r.PostFormValue("tags")),
		Categories: splitList(r.PostFormValue("categories")),
	}
	return in, formData{Input: in, Tags: r.PostFormValue("tags"), Cats: r.PostFormValue("categories")}
}

func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, title string, form formData, err error) {
	status, _, _ := httpx.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("save post", slog.Any("error", err))
	}
	form.Errors = map[string]string{"general": httpx.UserSafeMessage(err)}
	h.render(w, r, status, "pages/admin_post_form.html", title, form)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, _ := httpx.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("post page", slog.Any("error", err))
	}
	h.render(w, r, status, "pages/error.html", http.StatusText(status), map[string]any{"Message": httpx.UserSafeMessage(err)})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.Base(r, h.csrf, title)
	viewData.Locales = h.locales
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinTerms(terms []Term) string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
