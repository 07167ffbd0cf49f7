package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/adapter/cli/day"
	"github.com/felixgeelhaar/logmyjob/adapter/cli/mcp"
	"github.com/felixgeelhaar/logmyjob/adapter/cli/queue"
	"github.com/felixgeelhaar/logmyjob/adapter/cli/reminder"
	"github.com/felixgeelhaar/logmyjob/adapter/cli/vacation"
	"github.com/felixgeelhaar/logmyjob/internal/app"
	"github.com/felixgeelhaar/logmyjob/pkg/config"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{AppEnv: "development", LogLevel: "info"}
	}

	logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, "logmyjob"))
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		// version and help still work without storage
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()
		cli.SetApp(cli.NewApp(container))
	}

	cli.AddCommand(day.Cmd)
	cli.AddCommand(queue.Cmd)
	cli.AddCommand(reminder.Cmd)
	cli.AddCommand(vacation.Cmd)
	cli.AddCommand(mcp.Cmd)

	cli.Execute(ctx)
}
