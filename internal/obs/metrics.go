package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Ledger-level metrics.
var (
	entriesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_journal_entries_posted_total",
		Help: "Journal entries accepted by the posting engine.",
	})
	entriesVoided = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_journal_entries_voided_total",
		Help: "Journal entries voided via reversal.",
	})
	postingRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "book_postings_rejected_total",
		Help: "Postings rejected before any write.",
	}, []string{"reason"})
	depreciationRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "book_depreciation_postings_total",
		Help: "Depreciation and revaluation postings.",
	})
	reportsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "book_reports_generated_total",
		Help: "Financial reports computed.",
	}, []string{"report"})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		entriesPosted, entriesVoided, postingRejected, depreciationRuns, reportsGenerated,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EntryPosted counts an accepted journal entry.
func EntryPosted() { entriesPosted.Inc() }

// EntryVoided counts a void-by-reversal.
func EntryVoided() { entriesVoided.Inc() }

// PostingRejected counts a rejected posting by reason label.
func PostingRejected(reason string) { postingRejected.WithLabelValues(reason).Inc() }

// DepreciationPosted counts a depreciation or revaluation posting.
func DepreciationPosted() { depreciationRuns.Inc() }

// ReportGenerated counts one computed report by kind.
func ReportGenerated(report string) { reportsGenerated.WithLabelValues(report).Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	matches := func(prefix []string, suffix []string) bool {
		if len(parts) != len(prefix)+1+len(suffix) {
			return false
		}
		for i, p := range prefix {
			if parts[i] != p {
				return false
			}
		}
		for i, s := range suffix {
			if parts[len(prefix)+1+i] != s {
				return false
			}
		}
		// The wildcard segment must be non-empty.
		return parts[len(prefix)] != ""
	}
	switch {
	case matches([]string{"", "v1", "accounts"}, nil):
		return "/v1/accounts/:id"
	case matches([]string{"", "v1", "accounts"}, []string{"balance"}):
		return "/v1/accounts/:id/balance"
	case matches([]string{"", "v1", "journal-entries"}, []string{"void"}):
		return "/v1/journal-entries/:id/void"
	case matches([]string{"", "v1", "assets"}, nil):
		return "/v1/assets/:id"
	case matches([]string{"", "v1", "assets"}, []string{"depreciation"}):
		return "/v1/assets/:id/depreciation"
	case matches([]string{"", "v1", "assets"}, []string{"disposal"}):
		return "/v1/assets/:id/disposal"
	}
	return path
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
