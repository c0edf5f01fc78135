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

	"github.com/verdantrx/verdantrx/internal/access"
	"github.com/verdantrx/verdantrx/internal/app"
	"github.com/verdantrx/verdantrx/internal/auth"
	"github.com/verdantrx/verdantrx/internal/observability"
	"github.com/verdantrx/verdantrx/internal/platform/cache"
	"github.com/verdantrx/verdantrx/internal/platform/db"
	"github.com/verdantrx/verdantrx/internal/roles"
	"github.com/verdantrx/verdantrx/internal/shared"
	"github.com/verdantrx/verdantrx/internal/view"
	"github.com/verdantrx/verdantrx/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "verdantrx_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	metrics := observability.NewMetrics()

	var edge *roles.EdgeClient
	if cfg.RolesEdgeURL != "" {
		edge = roles.NewEdgeClient(cfg.RolesEdgeURL, cfg.RolesEdgeToken, nil)
	}
	rolesRepo := roles.NewRepository(dbpool)
	backend := roles.NewBackend(edge, rolesRepo, logger)

	adminCache := access.NewAdminStatusCache(cfg.AdminCacheTTL)
	resolver := access.NewResolver(backend, adminCache, logger, metrics.Access(), access.ResolverConfig{
		Timeout:              cfg.ResolveTimeout,
		ImplicitVerification: cfg.ImplicitVerification,
	})
	guard := access.NewGuard(access.DefaultGuardPaths())

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	accessGuard := &access.Middleware{
		Resolver:         resolver,
		Guard:            guard,
		Logger:           logger,
		Metrics:          metrics.Access(),
		Recorder:         jobs.NewRecorder(jobsClient),
		NotifyWindow:     cfg.NotifyBurstWindow,
		NotifyBurstLimit: cfg.NotifyBurstLimit,
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AccessGuard:    accessGuard,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
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
