// Package replay drains the durable queue once the remote is reachable
// again. Records are sent strictly in FIFO order, one at a time, and a
// record leaves the queue only after the remote confirmed it with a 2xx.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/auth"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// Trigger names what started a drain.
type Trigger string

const (
	TriggerConnectivity   Trigger = "connectivity"
	TriggerBackgroundSync Trigger = "background-sync"
	TriggerForce          Trigger = "force"
	TriggerStartup        Trigger = "startup"
)

// RejectionPolicy decides what happens to a record the remote refused.
type RejectionPolicy string

const (
	// RejectRetain keeps the record and holds it out of later passes until
	// an operator releases it.
	RejectRetain RejectionPolicy = "retain"
	// RejectDiscard removes the record.
	RejectDiscard RejectionPolicy = "discard"
	// RejectHalt keeps the record and stops the pass.
	RejectHalt RejectionPolicy = "halt"
)

// ParseRejectionPolicy parses a policy name; empty means retain.
func ParseRejectionPolicy(s string) (RejectionPolicy, error) {
	switch p := RejectionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RejectRetain, nil
	case RejectRetain, RejectDiscard, RejectHalt:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rejection policy %q", s)
	}
}

// maxErrorBody bounds how much of a rejection body is kept for logs.
const maxErrorBody = 512

// Config tunes the engine.
type Config struct {
	ReplayTimeout      time.Duration
	RejectionPolicy    RejectionPolicy
	RefreshCredentials bool
}

// DefaultConfig returns a 10s per-record timeout and the retain policy.
func DefaultConfig() Config {
	return Config{ReplayTimeout: 10 * time.Second, RejectionPolicy: RejectRetain}
}

// Outcome is what happened to one record during a pass.
type Outcome struct {
	ID     int64
	URL    string
	Status int
	Err    error
}

// Result summarises a drain pass. Per-record errors stay in Records.
type Result struct {
	Trigger   Trigger
	Processed int
	Failed    int
	Skipped   int
	Stopped   bool
	Records   []Outcome
	Duration  time.Duration
}

// Engine replays queued mutations.
type Engine struct {
	store   queue.Store
	held    *HeldSet
	client  *http.Client
	auth    auth.Provider
	emitter *messages.Emitter
	metrics observability.Metrics
	logger  *slog.Logger
	config  Config

	draining atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the client used to replay. It must talk to the
// network directly, never through the interceptor.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithHeldSet enables the held set required by the retain policy.
func WithHeldSet(h *HeldSet) Option {
	return func(e *Engine) { e.held = h }
}

// WithAuth sets the credential source used when RefreshCredentials is on.
func WithAuth(p auth.Provider) Option {
	return func(e *Engine) { e.auth = p }
}

// WithEmitter sets the message emitter.
func WithEmitter(em *messages.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine draining store.
func New(store queue.Store, config Config, opts ...Option) *Engine {
	if config.ReplayTimeout <= 0 {
		config.ReplayTimeout = DefaultConfig().ReplayTimeout
	}
	if config.RejectionPolicy == "" {
		config.RejectionPolicy = RejectRetain
	}
	e := &Engine{
		store:   store,
		client:  &http.Client{},
		metrics: observability.NoopMetrics{},
		logger:  slog.Default(),
		config:  config,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.emitter == nil {
		e.emitter = messages.NewEmitter(nil, e.logger)
	}
	return e
}

// Draining reports whether a pass is running.
func (e *Engine) Draining() bool {
	return e.draining.Load()
}

// Drain runs one pass over the queue. A trigger arriving while a pass runs
// gets ErrDrainInProgress and is dropped. The returned error is only ever
// about the pass itself (the guard, or the queue being unreadable); record
// failures are counted in the Result.
func (e *Engine) Drain(ctx context.Context, trigger Trigger) (Result, error) {
	res := Result{Trigger: trigger}
	if !e.draining.CompareAndSwap(false, true) {
		e.logger.DebugContext(ctx, "drain already running, trigger dropped", "trigger", trigger)
		return res, domain.ErrDrainInProgress
	}
	defer e.draining.Store(false)

	start := time.Now()
	e.metrics.Counter(observability.MetricReplayDrains, 1, observability.T("trigger", string(trigger)))

	pending, err := e.store.ListPending(ctx)
	if err != nil {
		e.recordError(err)
		return res, fmt.Errorf("list pending: %w", err)
	}
	held := e.heldIDs(ctx, pending)

	e.logger.InfoContext(ctx, "drain started", "trigger", trigger, "pending", len(pending), "held", len(held))

records:
	for _, m := range pending {
		if held[m.ID] {
			res.Skipped++
			continue
		}
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}

		status, err := e.replay(ctx, m)
		out := Outcome{ID: m.ID, URL: m.URL, Status: status, Err: err}
		res.Records = append(res.Records, out)

		switch {
		case err == nil:
			if rerr := e.store.Remove(context.WithoutCancel(ctx), m.ID); rerr != nil {
				// Delivered but still queued: stop so the same pass does not
				// move past a record that will be sent again.
				e.logger.ErrorContext(ctx, "replayed record could not be removed", "id", m.ID, "error", rerr)
				res.Records[len(res.Records)-1].Err = rerr
				res.Failed++
				res.Stopped = true
				break records
			}
			res.Processed++
			e.logger.InfoContext(ctx, "replayed queued request", "id", m.ID, "kind", m.Kind, "status", status)
			e.emitter.SyncComplete(ctx, m.URL, m.ID)

		case errors.Is(err, domain.ErrMalformedRecord):
			res.Failed++
			e.logger.ErrorContext(ctx, "skipping malformed queued record", "id", m.ID, "error", err)

		case errors.Is(err, domain.ErrRemoteRejected):
			res.Failed++
			e.logger.WarnContext(ctx, "remote rejected queued request",
				"id", m.ID, "kind", m.Kind, "status", status, "policy", e.config.RejectionPolicy, "error", err)
			if e.reject(ctx, m) {
				res.Stopped = true
				break records
			}

		default:
			res.Failed++
			res.Stopped = true
			e.logger.WarnContext(ctx, "remote unreachable, stopping drain", "id", m.ID, "error", err)
			break records
		}
	}

	res.Duration = time.Since(start)
	e.finish(ctx, res)
	return res, nil
}

// reject applies the rejection policy and reports whether the pass stops.
func (e *Engine) reject(ctx context.Context, m *domain.QueuedMutation) bool {
	switch e.config.RejectionPolicy {
	case RejectDiscard:
		if err := e.store.Remove(context.WithoutCancel(ctx), m.ID); err != nil {
			e.logger.ErrorContext(ctx, "failed to discard rejected record", "id", m.ID, "error", err)
		}
		return false
	case RejectHalt:
		return true
	default:
		if e.held == nil {
			return false
		}
		if err := e.held.Hold(context.WithoutCancel(ctx), m.ID); err != nil {
			e.logger.ErrorContext(ctx, "failed to hold rejected record", "id", m.ID, "error", err)
		}
		return false
	}
}

// replay sends one record. The request runs detached from ctx's
// cancellation so that a record is never abandoned halfway.
func (e *Engine) replay(ctx context.Context, m *domain.QueuedMutation) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.ReplayTimeout)
	defer cancel()

	req, err := m.Request(rctx)
	if err != nil {
		return 0, err
	}
	if e.config.RefreshCredentials && e.auth != nil {
		token, err := e.auth.AccessToken(rctx)
		if err != nil {
			return 0, fmt.Errorf("%w: refresh credentials: %w", domain.ErrNetworkUnreachable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, classify(resp.StatusCode, string(body))
}

// classify maps a remote status to the error taxonomy.
func classify(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: transient status %d", domain.ErrNetworkUnreachable, status)
	default:
		return &domain.RejectedError{Status: status, Body: strings.TrimSpace(body)}
	}
}

// heldIDs loads the held set and forgets ids that are no longer queued.
func (e *Engine) heldIDs(ctx context.Context, pending []*domain.QueuedMutation) map[int64]bool {
	if e.held == nil {
		return nil
	}
	live := make(map[int64]bool, len(pending))
	for _, m := range pending {
		live[m.ID] = true
	}
	ids, err := e.held.Prune(ctx, live)
	if err != nil {
		e.logger.WarnContext(ctx, "held set unavailable, replaying every record", "error", err)
		return nil
	}
	return ids
}

func (e *Engine) finish(ctx context.Context, res Result) {
	trig := observability.T("trigger", string(res.Trigger))
	e.metrics.Counter(observability.MetricReplayProcessed, int64(res.Processed), trig)
	e.metrics.Counter(observability.MetricReplayFailed, int64(res.Failed), trig)
	e.metrics.Counter(observability.MetricReplaySkipped, int64(res.Skipped), trig)
	e.metrics.Timing(observability.MetricReplayDuration, res.Duration, trig)
	e.recordDrain(res)

	e.logger.InfoContext(ctx, "drain finished",
		"trigger", res.Trigger,
		"processed", res.Processed,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"stopped", res.Stopped,
		"duration", res.Duration,
	)

	e.emitter.OfflineSyncComplete(ctx, res.Processed, res.Failed)
	if msg, kind, ok := messages.SyncSummary(res.Processed, res.Failed); ok {
		e.emitter.Toast(ctx, msg, kind)
	}
}
