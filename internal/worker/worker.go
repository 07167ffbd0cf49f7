// Package worker runs the long-lived side of the offline layer: the local
// proxy, connectivity monitoring, background replay, reminders and the
// health endpoints.
package worker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/app"
	mcpinternal "github.com/felixgeelhaar/logmyjob/internal/mcp"
)

// Options selects optional parts.
type Options struct {
	// MCP also serves the MCP tools on the configured address.
	MCP bool
	// ShutdownTimeout bounds server shutdown. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// Run starts every component and blocks until ctx is cancelled. The
// caller owns c and closes it afterwards.
func Run(ctx context.Context, c *app.Container, opts Options) error {
	cfg, logger := c.Config, c.Logger
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	appOrigin, err := url.Parse(cfg.AppOrigin)
	if err != nil {
		return err
	}
	apiBase, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return err
	}

	if err := c.Interceptor.Install(ctx); err != nil {
		logger.WarnContext(ctx, "precache install incomplete", "error", err)
	}
	if dropped, err := c.Interceptor.Activate(ctx); err != nil {
		logger.WarnContext(ctx, "cache activation failed", "error", err)
	} else if len(dropped) > 0 {
		logger.InfoContext(ctx, "outdated caches dropped", "caches", dropped)
	}

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task failed", "task", name, "error", err)
			}
		}()
	}

	background("connectivity", c.Monitor.Run)
	background("reminders", func(ctx context.Context) error {
		return c.Scheduler.Run(ctx, cfg.ReminderInterval)
	})
	background("consumer", c.StartConsumer)
	if opts.MCP {
		background("mcp", func(ctx context.Context) error {
			return mcpinternal.Serve(ctx, cfg, mcpinternal.ToolDependencies(c), logger)
		})
	}

	if err := c.Runner.Start(ctx); err != nil {
		return err
	}

	var servers []*http.Server
	if cfg.ProxyAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.ProxyAddr,
			Handler:           WithRequestID(NewProxy(appOrigin, apiBase, c.Interceptor, logger)),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}
	if cfg.WorkerHealthAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           HealthHandler(c),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}
	for _, srv := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("http server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "addr", srv.Addr, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown error", "addr", srv.Addr, "error", err)
		}
	}
	c.Runner.Stop()
	wg.Wait()

	logger.Info("worker stopped")
	return nil
}
