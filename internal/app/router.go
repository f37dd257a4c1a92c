// Package app wires configuration, adapters and HTTP routes together.
package app

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/skills-warrior/internal/adapter/httpserver"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// scriptOrigin returns the scheme://host of an absolute script URL, or ""
// for same-origin assets.
func scriptOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Analysis-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limit := httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute)
	if cfg.RateLimitPerMin <= 0 {
		limit = func(next http.Handler) http.Handler { return next }
	}

	// JSON API
	r.Group(func(api chi.Router) {
		api.Use(httpserver.SecurityHeaders(httpserver.APIContentSecurityPolicy))
		api.Group(func(wr chi.Router) {
			wr.Use(limit)
			wr.Post("/v1/extract", srv.ExtractHandler())
			wr.Post("/v1/analyze", srv.AnalyzeHandler())
			wr.Post("/v1/wordcloud", srv.WordcloudHandler())
		})
		api.Get("/healthz", srv.HealthzHandler())
		api.Get("/readyz", srv.ReadyzHandler())
		api.Get("/metrics", promhttp.Handler().ServeHTTP)
	})

	// HTML pages
	r.Group(func(ui chi.Router) {
		ui.Use(httpserver.SecurityHeaders(httpserver.UIContentSecurityPolicy(scriptOrigin(srv.Charts.ScriptURL()))))
		ui.Get("/", srv.UIHandler())
		ui.Group(func(wr chi.Router) {
			wr.Use(limit)
			wr.Post("/ui/analyze", srv.UIAnalyzeHandler())
			wr.Post("/v1/radar", srv.RadarHandler())
		})
	})

	return r
}
