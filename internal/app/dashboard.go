package app

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
	"github.com/inkwell-blog/inkwell/internal/shared"
	"github.com/inkwell-blog/inkwell/internal/users"
	"github.com/inkwell-blog/inkwell/internal/view"
)

// DashboardSources are the services the admin dashboard summarises.
type DashboardSources struct {
	Posts interface {
		ListAll(ctx context.Context, page int) (posts.Page, error)
	}
	Users interface {
		ListUsers(ctx context.Context) ([]users.User, error)
	}
	ServiceAccounts interface {
		List(ctx context.Context) ([]serviceaccounts.ServiceAccount, error)
	}
}

type dashboardData struct {
	Posts          int
	Users          int
	ActiveAccounts int
}

// DashboardHandler renders /admin.
type DashboardHandler struct {
	logger    *slog.Logger
	sources   DashboardSources
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(logger *slog.Logger, sources DashboardSources, templates *view.Engine, csrf *shared.CSRFManager) *DashboardHandler {
	return &DashboardHandler{logger: logger, sources: sources, templates: templates, csrf: csrf}
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var data dashboardData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.sources.Posts.ListAll(ctx, 1)
		data.Posts = page.Pagination.Total
		return err
	})
	g.Go(func() error {
		list, err := h.sources.Users.ListUsers(ctx)
		data.Users = len(list)
		return err
	})
	g.Go(func() error {
		accounts, err := h.sources.ServiceAccounts.List(ctx)
		for _, sa := range accounts {
			if !sa.Revoked {
				data.ActiveAccounts++
			}
		}
		return err
	})
	status := http.StatusOK
	if err := g.Wait(); err != nil {
		h.logger.Error("load dashboard", slog.Any("error", err))
		status = http.StatusInternalServerError
	}

	viewData := view.Base(r, h.csrf, "Dashboard")
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, "pages/admin_dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}
