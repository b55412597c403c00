package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/ahmethakanbesel/adzuna-ads/internal/ad"
)

//go:embed templates/*.html
var templates embed.FS

var pageTemplate = template.Must(template.New("").Funcs(template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"internship": ad.IsInternship,
}).ParseFS(templates, "templates/*.html"))

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(deps Deps) http.Handler {
	return newMux(deps)
}

func newMux(deps Deps) http.Handler {
	h := &handler{deps: deps, tmpl: pageTemplate}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /search", h.searchPage)
	mux.HandleFunc("GET /api/v1/ads", h.searchAds)
	mux.HandleFunc("GET /api/v1/geocode", h.lookup)
	mux.HandleFunc("GET /api/v1/snapshots/latest", h.latestSnapshot)

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
