package cache_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database/redisclient"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"image/png"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func get(url string) *http.Request {
	return httptest.NewRequest(http.MethodGet, url, nil)
}

func TestCache_PutAndMatch(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewInMemoryMetrics()
	c := cache.New("images-cache", cache.Policy{}, cache.NewMemoryStorage(), cache.WithMetrics(metrics))

	req := get("https://app.example/img/logo.png")
	resp := response(http.StatusOK, "png-bytes")
	require.NoError(t, c.Put(ctx, req, resp))

	// The caller can still read the body after Put.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))

	hit, err := c.Match(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, http.StatusOK, hit.StatusCode)
	assert.Equal(t, "image/png", hit.Header.Get("Content-Type"))
	cached, _ := io.ReadAll(hit.Body)
	assert.Equal(t, "png-bytes", string(cached))

	miss, err := c.Match(ctx, get("https://app.example/img/other.png"))
	require.NoError(t, err)
	assert.Nil(t, miss)

	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricCacheHits, observability.T("cache", "images-cache")))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricCacheMisses, observability.T("cache", "images-cache")))
}

func TestCache_OnlyCachesOK(t *testing.T) {
	ctx := context.Background()
	c := cache.New("api-cache", cache.Policy{}, cache.NewMemoryStorage())

	req := get("https://api.example/rest/v1/days")
	require.NoError(t, c.Put(ctx, req, response(http.StatusNotFound, "nope")))

	hit, err := c.Match(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestCache_MaxAge(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	metrics := observability.NewInMemoryMetrics()
	c := cache.New("cdn-cache", cache.Policy{MaxAge: 7 * 24 * time.Hour}, cache.NewMemoryStorage(),
		cache.WithClock(clock.Now), cache.WithMetrics(metrics))

	req := get("https://cdn.jsdelivr.net/npm/lib.js")
	require.NoError(t, c.Put(ctx, req, response(http.StatusOK, "js")))

	clock.Advance(6 * 24 * time.Hour)
	hit, err := c.Match(ctx, req)
	require.NoError(t, err)
	assert.NotNil(t, hit)

	clock.Advance(2 * 24 * time.Hour)
	hit, err = c.Match(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, hit, "entries past max age are ignored")
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricCacheEvicts,
		observability.T("cache", "cdn-cache"), observability.T("reason", "expired")))
}

func TestCache_MaxEntriesEvictsOldest(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := cache.New("images-cache", cache.Policy{MaxEntries: 3}, cache.NewMemoryStorage(), cache.WithClock(clock.Now))

	for i := range 5 {
		clock.Advance(time.Second)
		require.NoError(t, c.Put(ctx, get(fmt.Sprintf("https://app.example/%d.png", i)), response(http.StatusOK, "x")))
	}

	for i := range 5 {
		hit, err := c.Match(ctx, get(fmt.Sprintf("https://app.example/%d.png", i)))
		require.NoError(t, err)
		if i < 2 {
			assert.Nil(t, hit, "entry %d should have been evicted", i)
		} else {
			assert.NotNil(t, hit, "entry %d should be kept", i)
		}
	}
}

func runStorageContract(t *testing.T, s cache.Storage, name string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, name, &cache.Entry{Key: "b", Status: 200, Body: []byte("2"), StoredAt: base.Add(time.Second)}))
	require.NoError(t, s.Put(ctx, name, &cache.Entry{Key: "a", Status: 200, Body: []byte("1"), StoredAt: base}))

	e, err := s.Get(ctx, name, "a")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []byte("1"), e.Body)

	stamps, err := s.Stamps(ctx, name)
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.Equal(t, "a", stamps[0].Key)
	assert.Equal(t, "b", stamps[1].Key)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, name)

	require.NoError(t, s.Delete(ctx, name, "a"))
	e, err = s.Get(ctx, name, "a")
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, s.Drop(ctx, name))
	e, err = s.Get(ctx, name, "b")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestMemoryStorage_Contract(t *testing.T) {
	runStorageContract(t, cache.NewMemoryStorage(), "precache-v1")
}

func TestRedisStorage_Contract(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis cache tests")
	}
	ctx := context.Background()
	client, err := redisclient.Open(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	prefix := "logmyjob-test:" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})
	runStorageContract(t, cache.NewRedisStorage(client, prefix), "precache-v1")
}
