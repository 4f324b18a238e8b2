package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/draftball/draft-league/internal/app"
	"github.com/draftball/draft-league/internal/config"
	"github.com/draftball/draft-league/internal/observability"
	"github.com/draftball/draft-league/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	level, parseErr := zapcore.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		level = zapcore.InfoLevel
	}
	logger := logging.NewJSON(level)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if parseErr != nil {
		logger.Warn("invalid LOG_LEVEL, falling back to info", "value", cfg.LogLevel)
	}

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)

	if err := application.Close(); err != nil {
		logger.Error("close app", "error", err)
	}
	if err := stopPyroscope(); err != nil {
		logger.Error("stop pyroscope", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownUptrace(drainCtx); err != nil {
		logger.Error("shutdown uptrace", "error", err)
	}

	if runErr != nil {
		logger.Error("run app", "error", runErr)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
