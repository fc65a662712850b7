package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	audithttp "github.com/inkwell-blog/inkwell/internal/audit/http"
	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/i18n"
	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/site"
	"github.com/inkwell-blog/inkwell/internal/taxonomy"
	"github.com/inkwell-blog/inkwell/internal/users"
	"github.com/inkwell-blog/inkwell/jobs"
	"github.com/inkwell-blog/inkwell/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                 *slog.Logger
	Config                 *Config
	SessionManager         *shared.SessionManager
	CSRFManager            *shared.CSRFManager
	Locales                *i18n.Locales
	Gate                   *auth.Gate
	AuthHandler            *auth.Handler
	SiteHandler            *site.Handler
	PostsHandler           *posts.Handler
	TaxonomyHandler        *taxonomy.Handler
	UsersHandler           *users.Handler
	ServiceAccountsHandler *serviceaccounts.Handler
	AuditHandler           *audithttp.Handler
	DashboardHandler       http.Handler
	JobHandler             *jobs.Handler
	Metrics                *observability.Metrics
}

// NewRouter constructs the chi.Router with Inkwell defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/", params.Locales.RedirectRoot)
	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.Gate.PageMiddleware(auth.RoleAdmin))
		if params.DashboardHandler != nil {
			r.Method(http.MethodGet, "/", params.DashboardHandler)
		}
		r.Route("/posts", params.PostsHandler.MountAdmin)
		r.Route("/users", params.UsersHandler.MountAdmin)
		r.Route("/service-accounts", params.ServiceAccountsHandler.MountAdmin)
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(corsOptions(params.Config)))
		r.Route("/posts", params.PostsHandler.MountAPI)
		r.Route("/tags", params.TaxonomyHandler.MountAPI)
		r.Route("/users", params.UsersHandler.MountAPI)
		r.Route("/admin/service-accounts", params.ServiceAccountsHandler.MountAPI)
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Route("/{locale}", params.SiteHandler.MountRoutes)

	return r
}

func corsOptions(cfg *Config) cors.Options {
	var origins []string
	if cfg != nil {
		origins = cfg.CORSAllowedOrigins
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", shared.CSRFHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
