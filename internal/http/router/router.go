package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/config"
	"github.com/straye-as/labelling-app/internal/http/handler"
	"github.com/straye-as/labelling-app/internal/http/middleware"
	"github.com/straye-as/labelling-app/internal/web"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/labelling-app/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	authHandler      *handler.AuthHandler
	labellingHandler *handler.LabellingHandler
	analysisHandler  *handler.AnalysisHandler
	fileHandler      *handler.FileHandler
	auditHandler     *handler.AuditHandler
	healthHandler    *handler.HealthHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	labellingHandler *handler.LabellingHandler,
	analysisHandler *handler.AnalysisHandler,
	fileHandler *handler.FileHandler,
	auditHandler *handler.AuditHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		authHandler:      authHandler,
		labellingHandler: labellingHandler,
		analysisHandler:  analysisHandler,
		fileHandler:      fileHandler,
		auditHandler:     auditHandler,
		healthHandler:    healthHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(rt.authMiddleware.Identify)
	r.Use(middleware.Logging(rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Health checks
	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/ready", rt.healthHandler.Ready)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))

	// HTML pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/label", http.StatusFound)
		})

		r.Get("/login", rt.authHandler.LoginPage)
		r.Post("/login", rt.authHandler.Login)
		r.Post("/logout", rt.authHandler.Logout)
		r.Get("/register", rt.authHandler.RegisterPage)
		r.Post("/register", rt.authHandler.Register)

		r.Route("/label", func(r chi.Router) {
			r.Get("/", rt.labellingHandler.Page)
			r.Post("/file", rt.labellingHandler.SelectFile)
			r.Post("/navigate", rt.labellingHandler.Navigate)
			r.Post("/options", rt.labellingHandler.Options)
			r.Post("/saved", rt.labellingHandler.SavedResults)
			r.Post("/forms/{formID}", rt.labellingHandler.SubmitForm)
			r.Get("/download", rt.labellingHandler.Download)
		})

		r.With(rt.authMiddleware.RequireDataScientistPage).Get("/analysis", rt.analysisHandler.Page)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
		if timeout := rt.cfg.Server.RequestTimeout; timeout > 0 {
			r.Use(chimw.Timeout(time.Duration(timeout) * time.Second))
		}

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireUser)

			r.Get("/auth/me", rt.authHandler.Me)
			r.Get("/files", rt.fileHandler.List)
		})

		// Data scientist routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireDataScientist)

			r.Get("/runs", rt.analysisHandler.Runs)

			r.Route("/analysis", func(r chi.Router) {
				r.Get("/progress", rt.analysisHandler.Progress)
				r.Get("/summary", rt.analysisHandler.Summary)
				r.Get("/worst", rt.analysisHandler.Worst)
				r.Get("/correlation", rt.analysisHandler.Correlation)
				r.Get("/export", rt.analysisHandler.Export)
				r.Post("/refresh", rt.analysisHandler.Refresh)
			})

			r.Get("/audit/saves", rt.auditHandler.ListSaves)
		})
	})

	return r
}
