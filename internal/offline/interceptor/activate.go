package interceptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
)

// Install fetches every precache entry that is not cached yet. Failures are
// collected; the shell can still be filled lazily later.
func (i *Interceptor) Install(ctx context.Context) error {
	if i.cfg.AppOrigin == nil {
		return nil
	}
	c := i.cache(i.cfg.PrecacheName(), cache.Policy{})

	var errs []error
	for _, p := range i.cfg.Precache {
		key := i.precacheKey(p)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if hit, _ := c.MatchKey(ctx, key, req); hit != nil {
			hit.Body.Close()
			continue
		}
		resp, err := i.fetch(req, i.cfg.APITimeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			errs = append(errs, fmt.Errorf("precache %s: status %d", p, resp.StatusCode))
		} else if err := c.PutKey(ctx, key, resp); err != nil {
			errs = append(errs, err)
		}
		resp.Body.Close()
	}
	return errors.Join(errs...)
}

// Activate drops caches left behind by older precache versions. Runtime
// caches for images, fonts, CDN assets and API responses are kept.
func (i *Interceptor) Activate(ctx context.Context) ([]string, error) {
	names, err := i.caches.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	current := i.cfg.PrecacheName()
	var dropped []string
	for _, name := range names {
		if name == current || keptOnActivate[name] {
			continue
		}
		if err := i.caches.Drop(ctx, name); err != nil {
			return dropped, fmt.Errorf("drop cache %s: %w", name, err)
		}
		i.logger.InfoContext(ctx, "deleted outdated cache", "cache", name)
		dropped = append(dropped, name)
	}
	return dropped, nil
}
