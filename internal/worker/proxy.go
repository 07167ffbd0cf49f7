package worker

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// apiPrefixes are the paths forwarded to the data store instead of the app.
var apiPrefixes = []string{"/rest/", "/auth/", "/storage/"}

// NewProxy routes local requests through transport: API paths to apiBase,
// everything else to appOrigin. Absolute-form requests, as sent to a
// forward proxy, keep their target.
func NewProxy(appOrigin, apiBase *url.URL, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(r *httputil.ProxyRequest) {
			switch {
			case r.In.URL.IsAbs():
				r.Out.URL = cloneURL(r.In.URL)
				r.Out.Host = r.In.URL.Host
			case isAPIPath(r.In.URL.Path):
				r.SetURL(apiBase)
				r.Out.Host = apiBase.Host
			default:
				r.SetURL(appOrigin)
				r.Out.Host = appOrigin.Host
			}
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "proxy request failed", "method", r.Method, "url", r.URL.String(), "error", err)
			http.Error(w, "Offline", http.StatusServiceUnavailable)
		},
	}
}

// WithRequestID gives every request an ID, taken from X-Request-ID when the
// caller sent one, so interceptor and queue logs can be matched to it.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), r.Header.Get(observability.RequestIDHeader))
		w.Header().Set(observability.RequestIDHeader, observability.RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isAPIPath(path string) bool {
	for _, p := range apiPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	return &c
}
