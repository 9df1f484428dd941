package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/labelling-app/docs"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/charts"
	"github.com/straye-as/labelling-app/internal/config"
	"github.com/straye-as/labelling-app/internal/database"
	"github.com/straye-as/labelling-app/internal/forms"
	"github.com/straye-as/labelling-app/internal/health"
	"github.com/straye-as/labelling-app/internal/http/handler"
	"github.com/straye-as/labelling-app/internal/http/middleware"
	"github.com/straye-as/labelling-app/internal/http/router"
	"github.com/straye-as/labelling-app/internal/jobs"
	"github.com/straye-as/labelling-app/internal/logger"
	"github.com/straye-as/labelling-app/internal/repository"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/straye-as/labelling-app/internal/storage"
	"github.com/straye-as/labelling-app/internal/web"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title SME Labelling API
// @version 1.0
// @description Labelling progress, score analysis and save audit for subject matter expert evaluations
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load config with secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.App.Port)

	store, err := storage.NewStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	customForms, err := forms.LoadSpecs(cfg.Labelling.FormsFile)
	if err != nil {
		return fmt.Errorf("failed to load forms: %w", err)
	}
	registry, err := forms.NewDefaultRegistry(&cfg.Labelling, customForms)
	if err != nil {
		return fmt.Errorf("failed to build forms: %w", err)
	}

	instructions := ""
	if cfg.Labelling.InstructionsFile != "" {
		data, err := os.ReadFile(cfg.Labelling.InstructionsFile)
		if err != nil {
			return fmt.Errorf("failed to read instructions: %w", err)
		}
		instructions = string(data)
	}

	// Save audit trail is optional
	var db *gorm.DB
	var saveEventRepo *repository.SaveEventRepository
	if cfg.Database.Enabled {
		db, err = database.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
		if cfg.Database.Driver == "sqlite" || cfg.Database.Driver == "" {
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		saveEventRepo = repository.NewSaveEventRepository(db)
		log.Info("Save audit enabled", zap.String("driver", cfg.Database.Driver))
	}

	// Services
	resultStore := service.NewResultStore(store, log)
	auditService := service.NewSaveAuditService(saveEventRepo, log)
	sessions := service.NewSessionStore(cfg.Labelling.SessionIdleTimeoutDuration())
	labellingService := service.NewLabellingService(store, resultStore, auditService, registry, &cfg.Labelling, sessions, log)
	analysisService := service.NewAnalysisService(resultStore, &cfg.Analysis, log)

	authService := auth.NewService(
		auth.NewRegistry(store, cfg.Auth.UserConfigBlob, cfg.Auth.RegistryTTLDuration(), log),
		auth.ServiceOptions{
			MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
			SecureCookie:     cfg.Auth.SecureCookie,
		},
		log,
	)
	authMiddleware := auth.NewMiddleware(authService, cfg.ApiKey.Value, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	renderer, err := web.NewRenderer(cfg.App.Name, instructions, log)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authService, renderer, cfg.Auth.AllowRegistration, log)
	labellingHandler := handler.NewLabellingHandler(labellingService, renderer, cfg.Auth.SecureCookie, log)
	analysisHandler := handler.NewAnalysisHandler(analysisService, charts.NewRenderer(cfg.Analysis.ChartBaseURL), renderer, log)
	fileHandler := handler.NewFileHandler(labellingService, log)
	auditHandler := handler.NewAuditHandler(auditService, log)
	healthHandler := handler.NewHealthHandler(health.NewChecker(store, db, log))

	rt := router.NewRouter(
		cfg,
		log,
		authMiddleware,
		rateLimiter,
		authHandler,
		labellingHandler,
		analysisHandler,
		fileHandler,
		auditHandler,
		healthHandler,
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		// Warm up the analysis cache so the first view does not read every file
		if err := jobs.RegisterAnalysisRefreshJob(
			scheduler,
			analysisService,
			log,
			cfg.Jobs.AnalysisRefreshCron,
			cfg.Server.RequestTimeoutDuration(), // zero falls back to the job default
			true,
		); err != nil {
			return fmt.Errorf("failed to register analysis refresh job: %w", err)
		}
		if err := jobs.RegisterSessionEvictionJob(scheduler, sessions, log, cfg.Jobs.SessionEvictionCron); err != nil {
			return fmt.Errorf("failed to register session eviction job: %w", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}
		log.Info("Server stopped")
	}

	return nil
}
