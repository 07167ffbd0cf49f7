// Package cache stores HTTP responses for the interceptor's caching
// strategies. A Cache is a named view over a Storage with an expiration
// policy; several caches share one Storage.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// Entry is one stored response.
type Entry struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Stamp identifies an entry and when it was stored.
type Stamp struct {
	Key      string
	StoredAt time.Time
}

// Storage is the backend shared by every named cache.
type Storage interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context, name, key string) (*Entry, error)
	Put(ctx context.Context, name string, e *Entry) error
	Delete(ctx context.Context, name string, keys ...string) error
	// Stamps lists the entries of a cache, oldest first.
	Stamps(ctx context.Context, name string) ([]Stamp, error)
	// Names lists every cache holding at least one entry.
	Names(ctx context.Context) ([]string, error)
	Drop(ctx context.Context, name string) error
}

// Policy bounds a cache. Zero values mean unbounded.
type Policy struct {
	MaxEntries int
	MaxAge     time.Duration
}

// Cache is a named, policy-bound response cache.
type Cache struct {
	name    string
	policy  Policy
	storage Storage
	metrics observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records hits, misses and evictions.
func WithMetrics(m observability.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates the cache called name on storage.
func New(name string, policy Policy, storage Storage, opts ...Option) *Cache {
	c := &Cache{
		name:    name,
		policy:  policy,
		storage: storage,
		metrics: observability.NoopMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.name
}

// Key is the lookup key of a request: its full URL.
func Key(req *http.Request) string {
	return req.URL.String()
}

// Match returns the cached response for req, or nil. An entry past its max
// age is purged and reported as a miss.
func (c *Cache) Match(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.MatchKey(ctx, Key(req), req)
}

// MatchKey is Match for an explicit key, used for fallbacks such as the
// offline page.
func (c *Cache) MatchKey(ctx context.Context, key string, req *http.Request) (*http.Response, error) {
	e, err := c.storage.Get(ctx, c.name, key)
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", c.name, err)
	}
	if e != nil && c.expired(e.StoredAt) {
		if err := c.storage.Delete(ctx, c.name, key); err != nil {
			c.logger.WarnContext(ctx, "failed to purge expired entry", "cache", c.name, "key", key, "error", err)
		}
		c.metrics.Counter(observability.MetricCacheEvicts, 1, observability.T("cache", c.name), observability.T("reason", "expired"))
		e = nil
	}
	if e == nil {
		c.metrics.Counter(observability.MetricCacheMisses, 1, observability.T("cache", c.name))
		return nil, nil
	}
	c.metrics.Counter(observability.MetricCacheHits, 1, observability.T("cache", c.name))
	return e.Response(req), nil
}

// Put stores resp under req's key when its status is 200. The response body
// is read and replaced so the caller can still consume it.
func (c *Cache) Put(ctx context.Context, req *http.Request, resp *http.Response) error {
	return c.PutKey(ctx, Key(req), resp)
}

// PutKey is Put for an explicit key.
func (c *Cache) PutKey(ctx context.Context, key string, resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("read response for cache %s: %w", c.name, err)
	}

	e := &Entry{
		Key:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: c.now().UTC(),
	}
	if err := c.storage.Put(ctx, c.name, e); err != nil {
		return fmt.Errorf("cache %s: %w", c.name, err)
	}
	return c.enforce(ctx)
}

// enforce drops expired entries, then the oldest ones above MaxEntries.
func (c *Cache) enforce(ctx context.Context) error {
	if c.policy.MaxEntries <= 0 && c.policy.MaxAge <= 0 {
		return nil
	}
	stamps, err := c.storage.Stamps(ctx, c.name)
	if err != nil {
		return fmt.Errorf("cache %s: %w", c.name, err)
	}

	var expired, live []string
	for _, s := range stamps {
		if c.expired(s.StoredAt) {
			expired = append(expired, s.Key)
		} else {
			live = append(live, s.Key)
		}
	}
	var overflow []string
	if c.policy.MaxEntries > 0 && len(live) > c.policy.MaxEntries {
		overflow = live[:len(live)-c.policy.MaxEntries]
	}

	drop := append(expired, overflow...)
	if len(drop) == 0 {
		return nil
	}
	if err := c.storage.Delete(ctx, c.name, drop...); err != nil {
		return fmt.Errorf("cache %s: %w", c.name, err)
	}
	if len(expired) > 0 {
		c.metrics.Counter(observability.MetricCacheEvicts, int64(len(expired)), observability.T("cache", c.name), observability.T("reason", "expired"))
	}
	if len(overflow) > 0 {
		c.metrics.Counter(observability.MetricCacheEvicts, int64(len(overflow)), observability.T("cache", c.name), observability.T("reason", "overflow"))
	}
	return nil
}

func (c *Cache) expired(storedAt time.Time) bool {
	return c.policy.MaxAge > 0 && c.now().Sub(storedAt) > c.policy.MaxAge
}

// Response rebuilds an *http.Response for req.
func (e *Entry) Response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
