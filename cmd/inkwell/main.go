package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkwell-blog/inkwell/internal/app"
	"github.com/inkwell-blog/inkwell/internal/audit"
	audithttp "github.com/inkwell-blog/inkwell/internal/audit/http"
	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/i18n"
	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/platform/cache"
	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/platform/migrate"
	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/site"
	"github.com/inkwell-blog/inkwell/internal/taxonomy"
	"github.com/inkwell-blog/inkwell/internal/users"
	"github.com/inkwell-blog/inkwell/internal/view"
	"github.com/inkwell-blog/inkwell/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := migrate.Up(dbpool, logger); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "inkwell_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	locales, err := i18n.New(cfg.SupportedLocales, cfg.DefaultLocale)
	if err != nil {
		logger.Error("configure locales", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	codec := auth.NewTokenCodec(cfg.TokenHashCost, logger)
	accountRepo := serviceaccounts.NewRepository(dbpool)
	gate := auth.NewGate(
		auth.NewSessionResolver(auth.CookieSessionProvider{}, authRepo),
		auth.NewBearerResolver(accountRepo, codec, logger),
		authRepo,
		logger,
		auth.WithDecisionObserver(metrics),
	)

	taxonomyService := taxonomy.NewService(taxonomy.NewRepository(dbpool), cfg.TaxonomyCacheTTL)
	postsRepo := posts.NewRepository(dbpool)
	postsService := posts.NewService(posts.ServiceConfig{
		Repo:    postsRepo,
		Locales: locales,
		Views:   posts.NewViewCounter(postsRepo, logger, metrics),
		Audit:   auditLogger,
		Logger:  logger,
	})
	postsHandler := posts.NewHandler(posts.HandlerConfig{
		Logger:    logger,
		Service:   postsService,
		Templates: templates,
		CSRF:      csrfManager,
		Gate:      gate,
		Locales:   locales.Supported(),
		OnChange:  taxonomyService.Invalidate,
	})

	usersService := users.NewService(users.NewRepository(dbpool), auditLogger, logger)
	accountService := serviceaccounts.NewService(accountRepo, codec, auditLogger, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:                 logger,
		Config:                 cfg,
		SessionManager:         sessionManager,
		CSRFManager:            csrfManager,
		Locales:                locales,
		Gate:                   gate,
		AuthHandler:            authHandler,
		SiteHandler:            site.NewHandler(logger, postsService, taxonomyService, templates, csrfManager, locales),
		PostsHandler:           postsHandler,
		TaxonomyHandler:        taxonomy.NewHandler(logger, taxonomyService, gate, locales),
		UsersHandler:           users.NewHandler(logger, usersService, templates, csrfManager, gate),
		ServiceAccountsHandler: serviceaccounts.NewHandler(logger, accountService, templates, csrfManager, gate),
		AuditHandler:           audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), templates, csrfManager),
		DashboardHandler: app.NewDashboardHandler(logger, app.DashboardSources{
			Posts:           postsService,
			Users:           usersService,
			ServiceAccounts: accountService,
		}, templates, csrfManager),
		JobHandler: jobs.NewHandler(inspector, logger),
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
