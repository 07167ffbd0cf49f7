package interceptor

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// networkFirst tries the network within timeout and falls back to c.
func (i *Interceptor) networkFirst(req *http.Request, c *cache.Cache, timeout time.Duration) (*http.Response, error) {
	resp, err := i.fetch(req, timeout)
	if err == nil {
		i.put(req, c, resp)
		return resp, nil
	}
	if hit := i.fallback(req, c); hit != nil {
		return hit, nil
	}
	return nil, err
}

// fallback returns the cached response for a failed GET, marked as such.
func (i *Interceptor) fallback(req *http.Request, c *cache.Cache) *http.Response {
	if req.Method != http.MethodGet && req.Method != "" {
		return nil
	}
	hit, err := c.Match(req.Context(), req)
	if err != nil {
		i.logger.WarnContext(req.Context(), "cache lookup failed", "cache", c.Name(), "error", err)
		return nil
	}
	if hit != nil {
		hit.Header.Set(domain.OfflineCacheHeader, "hit")
	}
	return hit
}

// cacheFirst answers from c and only goes to the network on a miss.
func (i *Interceptor) cacheFirst(req *http.Request, c *cache.Cache) (*http.Response, error) {
	hit, err := c.Match(req.Context(), req)
	if err != nil {
		i.logger.WarnContext(req.Context(), "cache lookup failed", "cache", c.Name(), "error", err)
	}
	if hit != nil {
		return hit, nil
	}
	resp, err := i.fetch(req, i.cfg.APITimeout)
	if err != nil {
		return nil, err
	}
	i.put(req, c, resp)
	return resp, nil
}

// staleWhileRevalidate answers from c when it can and refreshes the entry
// in the background; on a miss it behaves like a plain fetch.
func (i *Interceptor) staleWhileRevalidate(req *http.Request, c *cache.Cache) (*http.Response, error) {
	hit, err := c.Match(req.Context(), req)
	if err != nil {
		i.logger.WarnContext(req.Context(), "cache lookup failed", "cache", c.Name(), "error", err)
	}
	if hit == nil {
		resp, err := i.fetch(req, i.cfg.APITimeout)
		if err != nil {
			return nil, err
		}
		i.put(req, c, resp)
		return resp, nil
	}

	bg := req.Clone(context.WithoutCancel(req.Context()))
	i.refreshes.Add(1)
	go func() {
		defer i.refreshes.Done()
		resp, err := i.fetch(bg, i.cfg.APITimeout)
		if err != nil {
			i.logger.Debug("background refresh failed", "cache", c.Name(), "url", bg.URL.Redacted(), "error", err)
			return
		}
		defer resp.Body.Close()
		i.put(bg, c, resp)
	}()
	return hit, nil
}

// navigate serves page loads: network, then the page cache, then the
// precached offline page, then a bare 503.
func (i *Interceptor) navigate(req *http.Request) (*http.Response, error) {
	pages := i.cache(CachePages, cache.Policy{})
	resp, err := i.fetch(req, i.cfg.NavigationTimeout)
	if err == nil {
		i.put(req, pages, resp)
		return resp, nil
	}
	i.logger.InfoContext(req.Context(), "navigation offline, serving fallback", "url", req.URL.Redacted(), "error", err)

	if hit := i.fallback(req, pages); hit != nil {
		return hit, nil
	}
	offline, lerr := i.cache(i.cfg.PrecacheName(), cache.Policy{}).MatchKey(req.Context(), i.precacheKey(OfflinePage), req)
	if lerr != nil {
		i.logger.WarnContext(req.Context(), "offline page lookup failed", "error", lerr)
	}
	if offline != nil {
		return offline, nil
	}
	return synthesize(req, http.StatusServiceUnavailable, http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}}, "Offline"), nil
}

// precached serves the versioned app shell, filling a miss once.
func (i *Interceptor) precached(req *http.Request) (*http.Response, error) {
	c := i.cache(i.cfg.PrecacheName(), cache.Policy{})
	key := i.precacheKey(req.URL.Path)
	hit, err := c.MatchKey(req.Context(), key, req)
	if err != nil {
		i.logger.WarnContext(req.Context(), "precache lookup failed", "error", err)
	}
	if hit != nil {
		return hit, nil
	}
	resp, err := i.fetch(req, i.cfg.APITimeout)
	if err != nil {
		return nil, err
	}
	if err := c.PutKey(req.Context(), key, resp); err != nil {
		i.logger.WarnContext(req.Context(), "failed to precache", "path", req.URL.Path, "error", err)
	}
	return resp, nil
}

// precacheKey keys shell entries by path on the app origin, ignoring the
// query string.
func (i *Interceptor) precacheKey(p string) string {
	if i.cfg.AppOrigin == nil {
		return p
	}
	return strings.TrimRight(i.cfg.AppOrigin.String(), "/") + p
}
