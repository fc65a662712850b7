package posts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// MountAPI registers /api/posts routes.
func (h *Handler) MountAPI(r chi.Router) {
	read := r.With(h.gate.Middleware(), auth.ScopeMiddleware(auth.ScopePostsRead))
	read.Get("/", h.apiList)
	read.Get("/{id}", h.apiGet)

	r.With(h.gate.Middleware(auth.RoleAdmin), auth.ScopeMiddleware(auth.ScopePostsWrite)).Post("/", h.apiCreate)
	r.With(h.gate.Middleware(auth.RoleAdmin), auth.ScopeMiddleware(auth.ScopePostsWrite)).Put("/{id}", h.apiUpdate)
	r.With(h.gate.Middleware(auth.RoleAdmin), auth.ScopeMiddleware(auth.ScopePostsDelete)).Delete("/{id}", h.apiDelete)
}

type listResponse struct {
	Data       []Post `json:"data"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locale := q.Get("locale")
	if locale == "" {
		locale = h.service.locales.Default()
	}
	if !h.service.locales.IsSupported(locale) {
		httpx.RespondError(w, httpx.BadRequest(httpx.CodeInvalidInput, "unsupported locale"))
		return
	}
	page := shared.PageFromRequest(r)
	var (
		result Page
		err    error
	)
	switch {
	case q.Get("tag") != "":
		result, err = h.service.ListByTag(r.Context(), locale, q.Get("tag"), page)
	case q.Get("category") != "":
		result, err = h.service.ListByCategory(r.Context(), locale, q.Get("category"), page)
	default:
		result, err = h.service.ListPublished(r.Context(), locale, page)
	}
	if err != nil {
		h.apiError(w, err)
		return
	}
	data := result.Posts
	if data == nil {
		data = []Post{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       data,
		Page:       result.Pagination.Page,
		PerPage:    result.Pagination.PerPage,
		Total:      result.Pagination.Total,
		TotalPages: result.Pagination.TotalPages,
	})
}

// apiGet returns a post by id. Drafts are only visible to admins.
func (h *Handler) apiGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.apiError(w, err)
		return
	}
	if p, _ := auth.PrincipalFromContext(r.Context()); !post.Published && p.Role() != auth.RoleAdmin {
		h.apiError(w, notFound())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": post})
}

func (h *Handler) apiCreate(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	post, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		h.apiError(w, err)
		return
	}
	h.onChange()
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": post})
}

func (h *Handler) apiUpdate(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	post, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		h.apiError(w, err)
		return
	}
	h.onChange()
	httpx.JSON(w, http.StatusOK, map[string]any{"data": post})
}

func (h *Handler) apiDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.apiError(w, err)
		return
	}
	h.onChange()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiError(w http.ResponseWriter, err error) {
	if status, _, _ := httpx.Classify(err); status >= http.StatusInternalServerError {
		h.logger.Error("post api", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
