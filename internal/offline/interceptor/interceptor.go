// Package interceptor is the http.RoundTripper that sits between the
// application and the network. It applies a caching strategy per resource
// class and turns mutations that cannot reach the remote data API into
// queued records answered with a synthesized 202.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// Relayer hands captured mutations to a process that owns a store.
type Relayer interface {
	Relay(ctx context.Context, m *domain.QueuedMutation) error
}

// BreakerConfig tunes the circuit breaker in front of the data API.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// DefaultBreakerConfig opens after 3 consecutive transport failures and
// probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, OpenTimeout: 30 * time.Second, HalfOpenRequests: 1}
}

// Interceptor implements http.RoundTripper.
type Interceptor struct {
	cfg         Config
	next        http.RoundTripper
	caches      cache.Storage
	store       queue.Store
	relay       Relayer
	emitter     *messages.Emitter
	metrics     observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
	breakerCfg  BreakerConfig
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	precache    map[string]bool
	crossOrigin map[string]bool
	refreshes   sync.WaitGroup
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithStore makes the interceptor queue mutations into its own store.
func WithStore(s queue.Store) Option {
	return func(i *Interceptor) { i.store = s }
}

// WithRelay makes the interceptor hand mutations to another process when it
// has no store of its own.
func WithRelay(r Relayer) Option {
	return func(i *Interceptor) { i.relay = r }
}

// WithEmitter sets the message emitter.
func WithEmitter(e *messages.Emitter) Option {
	return func(i *Interceptor) { i.emitter = e }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m observability.Metrics) Option {
	return func(i *Interceptor) { i.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interceptor) { i.logger = l }
}

// WithClock overrides the time source used for capture and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(i *Interceptor) { i.now = now }
}

// WithBreaker overrides the data API circuit breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(i *Interceptor) { i.breakerCfg = cfg }
}

// New creates an interceptor forwarding to next (http.DefaultTransport when
// nil) and caching into caches.
func New(cfg Config, next http.RoundTripper, caches cache.Storage, opts ...Option) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	i := &Interceptor{
		cfg:        cfg.withDefaults(),
		next:       next,
		caches:     caches,
		metrics:    observability.NoopMetrics{},
		logger:     slog.Default(),
		now:        time.Now,
		breakerCfg: DefaultBreakerConfig(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.emitter == nil {
		i.emitter = messages.NewEmitter(nil, i.logger)
	}

	i.precache = make(map[string]bool, len(i.cfg.Precache))
	for _, p := range i.cfg.Precache {
		i.precache[p] = true
	}
	i.crossOrigin = make(map[string]bool, len(i.cfg.CrossOriginHosts))
	for _, h := range i.cfg.CrossOriginHosts {
		i.crossOrigin[strings.ToLower(h)] = true
	}

	i.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "data-api",
		MaxRequests: i.breakerCfg.HalfOpenRequests,
		Timeout:     i.breakerCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= i.breakerCfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			i.logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return i
}

// Native reports whether captured mutations go into the interceptor's own
// store rather than through the relay.
func (i *Interceptor) Native() bool {
	return i.store != nil
}

// Pending returns the depth of the interceptor's own store, zero in relay mode.
func (i *Interceptor) Pending(ctx context.Context) (int, error) {
	if i.store == nil {
		return 0, nil
	}
	return i.store.Count(ctx)
}

// Wait blocks until background stale-while-revalidate refreshes finish.
func (i *Interceptor) Wait() {
	i.refreshes.Wait()
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	route := i.Classify(req)
	switch route {
	case RouteNavigation:
		return i.navigate(req)
	case RoutePrecache:
		return i.precached(req)
	case RouteImage:
		return i.cacheFirst(req, i.cache(CacheImages, ImagesPolicy))
	case RouteCrossOrigin:
		return i.staleWhileRevalidate(req, i.crossOriginCache(req))
	case RouteAPI:
		return i.api(req)
	default:
		return i.networkFirst(req, i.cache(CacheDefault, cache.Policy{}), i.cfg.APITimeout)
	}
}

func (i *Interceptor) cache(name string, policy cache.Policy) *cache.Cache {
	return cache.New(name, policy, i.caches,
		cache.WithMetrics(i.metrics),
		cache.WithLogger(i.logger),
		cache.WithClock(i.now),
	)
}

func (i *Interceptor) crossOriginCache(req *http.Request) *cache.Cache {
	if fontHosts[strings.ToLower(req.URL.Hostname())] {
		return i.cache(CacheFonts, FontsPolicy)
	}
	return i.cache(CacheCDN, CDNPolicy)
}

// fetch forwards req bounded by timeout. The deadline stays attached to the
// response body until it is closed. Any transport failure is reported as
// ErrNetworkUnreachable.
func (i *Interceptor) fetch(req *http.Request, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	resp, err := i.next.RoundTrip(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrNetworkUnreachable, req.Method, req.URL.Redacted(), err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// put caches resp when it is a 200 to a GET. Failures are logged only.
func (i *Interceptor) put(req *http.Request, c *cache.Cache, resp *http.Response) {
	if req.Method != http.MethodGet && req.Method != "" {
		return
	}
	if err := c.Put(req.Context(), req, resp); err != nil {
		i.logger.WarnContext(req.Context(), "failed to cache response", "cache", c.Name(), "url", req.URL.Redacted(), "error", err)
	}
}

func isUnreachable(err error) bool {
	return errors.Is(err, domain.ErrNetworkUnreachable)
}
