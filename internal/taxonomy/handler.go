package taxonomy

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// LocaleDefaulter supplies the locale used when a request names none.
type LocaleDefaulter interface {
	Default() string
	IsSupported(code string) bool
}

// Handler serves the tag API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    *auth.Gate
	locales LocaleDefaulter
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, gate *auth.Gate, locales LocaleDefaulter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, gate: gate, locales: locales}
}

// MountAPI registers /api/tags routes.
func (h *Handler) MountAPI(r chi.Router) {
	r.With(h.gate.Middleware(), auth.ScopeMiddleware(auth.ScopeTagsRead)).Get("/", h.listTags)
	r.With(h.gate.Middleware(auth.RoleAdmin), auth.ScopeMiddleware(auth.ScopeTagsWrite)).Post("/", h.createTag)
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = h.locales.Default()
	}
	if !h.locales.IsSupported(locale) {
		httpx.RespondError(w, httpx.BadRequest(httpx.CodeInvalidInput, "unsupported locale"))
		return
	}
	tags, err := h.service.ListTags(r.Context(), locale)
	if err != nil {
		h.logger.Error("list tags", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if tags == nil {
		tags = []Tag{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": tags})
}

func (h *Handler) createTag(w http.ResponseWriter, r *http.Request) {
	var in CreateTagInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tag, err := h.service.CreateTag(r.Context(), in)
	if err != nil {
		h.logError("create tag", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": tag})
}

func (h *Handler) logError(msg string, err error) {
	if status, _, _ := httpx.Classify(err); status >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
}
