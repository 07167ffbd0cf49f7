package replay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// RunnerConfig holds the background loop intervals.
type RunnerConfig struct {
	SyncInterval  time.Duration
	StatsInterval time.Duration
}

// DefaultRunnerConfig wakes up every minute and logs stats every 30s.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{SyncInterval: time.Minute, StatsInterval: 30 * time.Second}
}

// Runner wakes the engine periodically, the background-sync trigger, and
// drains once at startup when the queue is not empty.
type Runner struct {
	engine  *Engine
	store   queue.Store
	online  func() bool
	config  RunnerConfig
	metrics observability.Metrics
	logger  *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewRunner creates a runner. online gates every automatic drain; nil
// means always online.
func NewRunner(engine *Engine, store queue.Store, online func() bool, config RunnerConfig, metrics observability.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if online == nil {
		online = func() bool { return true }
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = DefaultRunnerConfig().SyncInterval
	}
	if config.StatsInterval <= 0 {
		config.StatsInterval = DefaultRunnerConfig().StatsInterval
	}
	return &Runner{
		engine:   engine,
		store:    store,
		online:   online,
		config:   config,
		metrics:  metrics,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the startup drain and begins the loop in a goroutine.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("sync runner started",
		"sync_interval", r.config.SyncInterval,
		"stats_interval", r.config.StatsInterval,
	)
	return nil
}

// Stop gracefully stops the runner, waiting for a running pass to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("sync runner stopped")
}

// IsRunning returns true if the runner is running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	r.Wake(ctx, TriggerStartup)

	syncTicker := time.NewTicker(r.config.SyncInterval)
	defer syncTicker.Stop()
	statsTicker := time.NewTicker(r.config.StatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-syncTicker.C:
			r.Wake(ctx, TriggerBackgroundSync)
		case <-statsTicker.C:
			r.logStats(ctx)
		}
	}
}

// Wake drains when the remote is reachable and the queue holds records.
func (r *Runner) Wake(ctx context.Context, trigger Trigger) {
	if !r.online() {
		return
	}
	n, err := r.store.Count(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to count queued records", "error", err)
		return
	}
	r.metrics.Gauge(observability.MetricQueueDepth, float64(n))
	if n == 0 {
		return
	}
	if _, err := r.engine.Drain(ctx, trigger); err != nil && !errors.Is(err, domain.ErrDrainInProgress) {
		r.logger.ErrorContext(ctx, "drain failed", "trigger", trigger, "error", err)
	}
}

func (r *Runner) logStats(ctx context.Context) {
	s := r.engine.GetStats()
	n, err := r.store.Count(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to count queued records", "error", err)
	}
	r.metrics.Gauge(observability.MetricQueueDepth, float64(n))
	r.logger.Info("sync stats",
		"pending", n,
		"drains", s.Drains,
		"processed", s.ProcessedCount,
		"failed", s.FailedCount,
		"skipped", s.SkippedCount,
		"last_error", s.LastError,
	)
}
