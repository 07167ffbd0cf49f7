package interceptor

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Route is the resource class of a request.
type Route int

const (
	RouteDefault Route = iota
	RouteNavigation
	RoutePrecache
	RouteImage
	RouteCrossOrigin
	RouteAPI
)

func (r Route) String() string {
	switch r {
	case RouteNavigation:
		return "navigation"
	case RoutePrecache:
		return "precache"
	case RouteImage:
		return "image"
	case RouteCrossOrigin:
		return "cross-origin"
	case RouteAPI:
		return "api"
	default:
		return "default"
	}
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".avif": true,
}

// Classify returns the first matching route for req.
func (i *Interceptor) Classify(req *http.Request) Route {
	get := req.Method == http.MethodGet || req.Method == ""
	appOrigin := sameOrigin(req.URL, i.cfg.AppOrigin)

	switch {
	case get && appOrigin && isNavigation(req):
		return RouteNavigation
	case get && appOrigin && i.precache[req.URL.Path]:
		return RoutePrecache
	case get && isImage(req):
		return RouteImage
	case get && i.crossOrigin[strings.ToLower(req.URL.Hostname())]:
		return RouteCrossOrigin
	case i.cfg.APIBase != nil && strings.EqualFold(req.URL.Host, i.cfg.APIBase.Host):
		return RouteAPI
	default:
		return RouteDefault
	}
}

func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func isImage(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Dest") == "image" {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(req.URL.Path))]
}

func sameOrigin(u, origin *url.URL) bool {
	if origin == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}
