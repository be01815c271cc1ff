package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/saurabhwebdev/invoicaura/internal/auth"
	"github.com/saurabhwebdev/invoicaura/internal/invoice"
	"github.com/saurabhwebdev/invoicaura/internal/observability"
	"github.com/saurabhwebdev/invoicaura/internal/profile"
	"github.com/saurabhwebdev/invoicaura/internal/project"
	"github.com/saurabhwebdev/invoicaura/internal/shared"
	"github.com/saurabhwebdev/invoicaura/internal/vendor"
	"github.com/saurabhwebdev/invoicaura/internal/workspace"
	"github.com/saurabhwebdev/invoicaura/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler      *auth.Handler
	ProjectHandler   *project.Handler
	InvoiceHandler   *invoice.Handler
	VendorHandler    *vendor.Handler
	ProfileHandler   *profile.Handler
	WorkspaceHandler *workspace.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
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

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireUser)
		if params.WorkspaceHandler != nil {
			r.Use(params.WorkspaceHandler.InvalidateOnWrite)
		}

		r.Route("/projects", params.ProjectHandler.MountRoutes)
		r.Route("/invoices", params.InvoiceHandler.MountRoutes)
		r.Route("/vendors", params.VendorHandler.MountRoutes)
		r.Route("/profile", params.ProfileHandler.MountRoutes)
		if params.WorkspaceHandler != nil {
			r.Route("/workspace", params.WorkspaceHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
