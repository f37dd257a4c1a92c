package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// AnalysesTotal counts finished analyses by score method and verdict.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Total number of CV/job description analyses",
		},
		[]string{"method", "verdict"},
	)
	MatchScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_match_score",
			Help:    "Distribution of match scores ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"method"},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Total number of text extractions by source kind and status",
		},
		[]string{"kind", "status"},
	)

	PageFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_fetches_total",
			Help: "Total number of outbound page fetches by host and status",
		},
		[]string{"host", "status"},
	)
	PageFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_fetch_duration_seconds",
			Help:    "Outbound page fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"host"},
	)
	PageCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_lookups_total",
			Help: "Page cache lookups by backend and result",
		},
		[]string{"backend", "result"},
	)

	// ExternalCallsTotal and ExternalCallDuration cover Tika and other observed calls.
	ExternalCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_calls_total",
			Help: "Total number of calls to external dependencies",
		},
		[]string{"connection", "operation", "status"},
	)
	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_call_duration_seconds",
			Help:    "External dependency call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"connection", "operation"},
	)

	WordcloudRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordcloud_render_duration_seconds",
			Help:    "Word cloud rendering duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"palette"},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AnalysesTotal,
			MatchScoreHistogram,
			ExtractionsTotal,
			PageFetchesTotal,
			PageFetchDuration,
			PageCacheLookups,
			ExternalCallsTotal,
			ExternalCallDuration,
			WordcloudRenderDuration,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAnalysis records the outcome of a finished analysis.
func ObserveAnalysis(method, verdict string, score float64) {
	AnalysesTotal.WithLabelValues(method, verdict).Inc()
	if score >= 0 && score <= 100 {
		MatchScoreHistogram.WithLabelValues(method).Observe(score)
	}
}

// ObserveExtraction counts an extraction attempt for a source kind.
func ObserveExtraction(kind string, err error) {
	ExtractionsTotal.WithLabelValues(kind, statusOf(err)).Inc()
}

// ObservePageFetch records a finished outbound fetch.
func ObservePageFetch(host string, dur time.Duration, err error) {
	PageFetchesTotal.WithLabelValues(host, statusOf(err)).Inc()
	PageFetchDuration.WithLabelValues(host).Observe(dur.Seconds())
}

// ObserveCacheLookup records a page cache hit or miss.
func ObserveCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	PageCacheLookups.WithLabelValues(backend, result).Inc()
}

// ObserveExternalCall records a call to an external dependency with an explicit status label.
func ObserveExternalCall(connection, operation, status string, dur time.Duration) {
	ExternalCallsTotal.WithLabelValues(connection, operation, status).Inc()
	ExternalCallDuration.WithLabelValues(connection, operation).Observe(dur.Seconds())
}

// ObserveWordcloud records a word cloud render.
func ObserveWordcloud(palette string, dur time.Duration) {
	WordcloudRenderDuration.WithLabelValues(palette).Observe(dur.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
