package interceptor

import (
	"net/url"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
)

// Runtime cache names. These survive Activate whatever the precache version.
const (
	CachePages   = "pages-cache"
	CacheImages  = "images-cache"
	CacheFonts   = "google-fonts"
	CacheCDN     = "cdn-cache"
	CacheAPI     = "api-cache"
	CacheDefault = "default-cache"

	// OfflinePage is served to navigations when the network and the page
	// cache both fail.
	OfflinePage = "/offline.html"
)

// keptOnActivate lists the runtime caches Activate never drops.
var keptOnActivate = map[string]bool{
	CacheImages: true,
	CacheFonts:  true,
	CacheCDN:    true,
	CacheAPI:    true,
}

// fontHosts are served from the google-fonts cache; every other
// cross-origin host goes to cdn-cache.
var fontHosts = map[string]bool{
	"fonts.googleapis.com": true,
	"fonts.gstatic.com":    true,
}

// Policies of the bounded runtime caches.
var (
	ImagesPolicy = cache.Policy{MaxEntries: 50, MaxAge: 30 * 24 * time.Hour}
	FontsPolicy  = cache.Policy{MaxEntries: 30, MaxAge: 365 * 24 * time.Hour}
	CDNPolicy    = cache.Policy{MaxEntries: 20, MaxAge: 7 * 24 * time.Hour}
)

// DefaultPrecache is the app shell fetched on install.
var DefaultPrecache = []string{
	"/",
	"/index.html",
	"/auth.html",
	OfflinePage,
	"/css/style.css",
	"/js/config.js",
	"/js/supabase-client.js",
	"/js/auth.js",
	"/js/api.js",
	"/js/translations.js",
	"/js/app.js",
	"/js/calendar.js",
	"/js/history.js",
	"/js/export.js",
	"/js/stats.js",
	"/js/offline-sync.js",
	"/manifest.json",
}

// Config tells the interceptor which origin is which.
type Config struct {
	AppOrigin        *url.URL
	APIBase          *url.URL
	CrossOriginHosts []string
	PrecacheVersion  string
	Precache         []string

	NavigationTimeout time.Duration
	APITimeout        time.Duration
}

func (c Config) withDefaults() Config {
	if c.PrecacheVersion == "" {
		c.PrecacheVersion = "v1"
	}
	if c.Precache == nil {
		c.Precache = DefaultPrecache
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 5 * time.Second
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 10 * time.Second
	}
	return c
}

// PrecacheName is the versioned app shell cache.
func (c Config) PrecacheName() string {
	return "precache-" + c.PrecacheVersion
}
