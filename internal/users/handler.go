package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	gate      *auth.Gate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, gate *auth.Gate) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, gate: gate}
}

// MountAdmin registers /admin/users pages. The router must already require an admin.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/{id}/role", h.changeRole)
}

// MountAPI registers /api/users.
func (h *Handler) MountAPI(r chi.Router) {
	r.With(h.gate.Middleware(auth.RoleAdmin), auth.ScopeMiddleware(auth.ScopeUsersRead)).Get("/", h.apiList)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, http.StatusInternalServerError, map[string]any{"Error": httpx.UserSafeMessage(err)})
		return
	}
	h.render(w, r, http.StatusOK, map[string]any{"Users": users, "Roles": auth.Roles()})
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.ChangeRole(r.Context(), p, chi.URLParam(r, "id"), r.PostFormValue("role")); err != nil {
		if status, _, _ := httpx.Classify(err); status >= http.StatusInternalServerError {
			h.logger.Error("change role failed", slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, "error", httpx.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "success", "Role updated")
}

func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": users})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	viewData := view.Base(r, h.csrf, "Users")
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, "pages/admin_users.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
