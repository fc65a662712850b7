package serviceaccounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/view"
)

// Handler serves the service-account admin pages and JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	gate      *auth.Gate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, gate *auth.Gate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, gate: gate}
}

// MountAdmin registers /admin/service-accounts pages. The router must already require
// an admin session.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/", h.adminList)
	r.Get("/new", h.adminNew)
	r.Post("/", h.adminCreate)
	r.Post("/{id}/revoke", h.adminRevoke)
	r.Post("/{id}/delete", h.adminDelete)
}

// MountAPI registers /api/admin/service-accounts. Bearer callers additionally need the
// admin:full scope.
func (h *Handler) MountAPI(r chi.Router) {
	r.Use(h.gate.Middleware(auth.RoleAdmin), auth.ScopeMiddleware(auth.ScopeAdminFull))
	r.Get("/", h.apiList)
	r.Post("/", h.apiCreate)
	r.Post("/{id}/revoke", h.apiRevoke)
	r.Delete("/{id}", h.apiDelete)
}

type formData struct {
	Input   CreateInput
	Allowed []string
	Error   string
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_service_accounts.html", "Service accounts", accounts)
}

func (h *Handler) adminNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/admin_service_account_new.html", "New service account",
		formData{Allowed: auth.AllowedScopes()})
}

// adminCreate renders the token directly instead of redirecting so it never passes
// through the session store.
func (h *Handler) adminCreate(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	in := CreateInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Scopes:      r.PostForm["scopes"],
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		status, _, _ := httpx.Classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("create service account", slog.Any("error", err))
		}
		h.render(w, r, status, "pages/admin_service_account_new.html", "New service account",
			formData{Input: in, Allowed: auth.AllowedScopes(), Error: httpx.UserSafeMessage(err)})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, http.StatusCreated, "pages/admin_service_account_created.html", "Service account created", created)
}

func (h *Handler) adminRevoke(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Revoke(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.redirectWithFlash(w, r, "error", httpx.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", "Service account revoked")
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.redirectWithFlash(w, r, "error", httpx.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", "Service account deleted")
}

func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.apiError(w, err)
		return
	}
	if accounts == nil {
		accounts = []ServiceAccount{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": accounts})
}

func (h *Handler) apiCreate(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		h.apiError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *Handler) apiRevoke(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Revoke(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.apiError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": chi.URLParam(r, "id"), "revoked": true}})
}

func (h *Handler) apiDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiError(w http.ResponseWriter, err error) {
	if status, _, _ := httpx.Classify(err); status >= http.StatusInternalServerError {
		h.logger.Error("service account api", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, _ := httpx.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("service account page", slog.Any("error", err))
	}
	h.render(w, r, status, "pages/error.html", http.StatusText(status), map[string]any{"Message": httpx.UserSafeMessage(err)})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	viewData := view.Base(r, h.csrf, title)
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/admin/service-accounts", http.StatusSeeOther)
}
