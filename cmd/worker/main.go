package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/logmyjob/internal/app"
	"github.com/felixgeelhaar/logmyjob/internal/worker"
	"github.com/felixgeelhaar/logmyjob/pkg/config"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger(observability.LogConfigFor("production", "info", "logmyjob-worker")).
			Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, "logmyjob-worker"))
	logger.Info("starting logmyjob worker", "queue", cfg.QueueDriver, "api", cfg.APIBaseURL)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if err := worker.Run(ctx, container, worker.Options{MCP: cfg.WorkerMCP}); err != nil {
		logger.Error("worker failed", "error", err)
		container.Close()
		os.Exit(1)
	}
}
