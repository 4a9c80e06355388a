package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/api/uistatic"
	"github.com/querydesk/querydesk/internal/audit"
	auditpostgres "github.com/querydesk/querydesk/internal/audit/postgres"
	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/observability"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("querydesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	shutdownTracing, err := observability.InitTracing(cfg, os.Stdout)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store, sourceChecks, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open query store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	engine := nl2sql.NewEngine(store, logger)
	engine.StoreTimeout = cfg.Store.QueryTimeout
	if !cfg.Engine.ReferenceDate.IsZero() {
		reference := cfg.Engine.ReferenceDate
		engine.Now = func() time.Time { return reference }
	}

	readiness := append([]api.ReadinessCheck{store.HealthCheck}, sourceChecks...)
	var auditStore audit.Store = audit.NewMemory(500)
	if cfg.Audit.Enabled {
		auditDB, err := auditpostgres.Open(context.Background(), auditpostgres.DBConfig{
			DSN:             cfg.Audit.DSN,
			ApplicationName: cfg.Service.Name,
			MaxOpenConns:    cfg.Audit.MaxOpenConns,
			MaxIdleConns:    cfg.Audit.MaxIdleConns,
			ConnMaxIdleTime: cfg.Audit.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open audit db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = auditDB.Close() }()
		auditRepo := auditpostgres.NewRepository(auditDB)
		auditStore = auditRepo
		readiness = append(readiness, auditRepo.HealthCheck)
	}

	users, err := auth.NewUsers(cfg.Auth.Users)
	if err != nil {
		logger.Error("failed to parse auth users", slog.Any("error", err))
		os.Exit(1)
	}
	sessions := auth.NewSessionStore(cfg.Auth.SessionTTL)

	deps := api.Dependencies{
		Logger:            logger,
		Queries:           engine,
		Audit:             auditStore,
		Users:             users,
		Sessions:          sessions,
		LoginLimiter:      auth.NewLoginLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst),
		UI:                uistatic.Handler(),
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, auth.Validators{validator, sessions})
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store_driver", cfg.Store.Driver),
			slog.String("dataset_source", cfg.Dataset.Source),
			slog.Bool("audit_enabled", cfg.Audit.Enabled),
			slog.Bool("auth_required", cfg.Auth.Required),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
