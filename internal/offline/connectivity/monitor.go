// Package connectivity watches whether the remote is reachable and tells
// subscribers when it comes back.
package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Prober checks reachability once. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber treats any HTTP answer from URL as online.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// Probe implements Prober.
func (p HTTPProber) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// DefaultStabilization is how long the monitor waits after the remote
// comes back before notifying subscribers.
const DefaultStabilization = time.Second

// Monitor polls a Prober and fires OnOnline callbacks on every
// offline-to-online transition.
type Monitor struct {
	prober        Prober
	interval      time.Duration
	stabilization time.Duration
	logger        *slog.Logger

	online atomic.Bool

	mu        sync.Mutex
	listeners []func(ctx context.Context)
}

// NewMonitor creates a monitor. It starts out assuming the remote is online.
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	m := &Monitor{
		prober:        prober,
		interval:      interval,
		stabilization: DefaultStabilization,
		logger:        logger,
	}
	m.online.Store(true)
	return m
}

// SetStabilization overrides the post-reconnect delay.
func (m *Monitor) SetStabilization(d time.Duration) {
	m.stabilization = d
}

// OnOnline registers fn for offline-to-online transitions.
func (m *Monitor) OnOnline(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Check probes once and updates the state. When the remote has just come
// back it waits for the stabilization delay and notifies subscribers
// before returning.
func (m *Monitor) Check(ctx context.Context) bool {
	err := m.prober.Probe(ctx)
	now := err == nil
	was := m.online.Swap(now)

	switch {
	case was && !now:
		m.logger.Info("network went offline", "error", err)
	case !was && now:
		m.logger.Info("network back online")
		select {
		case <-ctx.Done():
			return now
		case <-time.After(m.stabilization):
		}
		m.notify(ctx)
	}
	return now
}

func (m *Monitor) notify(ctx context.Context) {
	m.mu.Lock()
	listeners := append([]func(context.Context){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx)
	}
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
