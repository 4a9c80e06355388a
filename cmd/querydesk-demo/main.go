package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/demo/tour"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := tour.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := tour.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize demo", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"demo tour started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("user", cfg.Username),
		slog.Int("generated", cfg.Generated),
		slog.Duration("interval", cfg.Interval),
		slog.Int64("seed", cfg.Seed),
	)

	summary, err := service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo tour stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo tour finished",
		slog.Int("asked", summary.Asked),
		slog.Int("failed", summary.Failed),
		slog.Int("invalid", summary.Invalid),
	)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
