package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/verdantrx/verdantrx/internal/access"
	"github.com/verdantrx/verdantrx/internal/auth"
	"github.com/verdantrx/verdantrx/internal/observability"
	"github.com/verdantrx/verdantrx/internal/platform/httpx"
	"github.com/verdantrx/verdantrx/internal/shared"
	"github.com/verdantrx/verdantrx/internal/view"
	"github.com/verdantrx/verdantrx/jobs"
	"github.com/verdantrx/verdantrx/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	AccessGuard    *access.Middleware
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with VerdantRx defaults.
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
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Landing page for unauthenticated users
	r.Get("/welcome", params.renderPage("pages/landing.html", "VerdantRx"))

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(params.AccessGuard.Protect(access.Requirement{}))
		r.Get("/", params.renderPage("pages/home.html", "Dashboard"))
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AccessGuard.Protect(access.Requirement{AdminOnly: true}))
		r.Get("/admin", params.renderPage("pages/admin_home.html", "Administration"))
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AccessGuard.Protect(access.Requirement{PharmacistOnly: true}))
		r.Get("/pharmacy", params.renderPage("pages/pharmacy.html", "Pharmacy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AccessGuard.Protect(access.Requirement{VerifiedPharmacistOnly: true}))
		r.Get("/pharmacy/dispense", params.renderPage("pages/dispense.html", "Dispensing"))
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.AccessGuard.Protect(access.Requirement{AdminOnly: true}))
			params.JobsHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Static files are served without session or CSRF handling.
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// renderPage builds a handler that renders a template with session-derived data.
func (p RouterParams) renderPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := p.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:       title,
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
		}
		if err := p.Templates.Render(w, name, data); err != nil {
			p.Logger.Error("render page", slog.String("template", name), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
