package handler

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spinforge/platform/internal/proxy"
	"github.com/spinforge/platform/internal/session"
)

// SessionStats exposes the registry's introspection counters.
type SessionStats interface {
	Online() int
	Snapshot() session.State
	QueueDepth() int
}

// MetricsHandler serves the session counters as JSON and as a Prometheus
// scrape target.
type MetricsHandler struct {
	stats    SessionStats
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
}

// NewMetricsHandler creates the handler and registers the collectors.
func NewMetricsHandler(stats SessionStats) *MetricsHandler {
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by path and status.",
	}, []string{"path", "status"})
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requests,
		proxy.WalletErrors,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sessions_online",
			Help: "Sessions touched within the last minute.",
		}, func() float64 { return float64(stats.Online()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sessions_registered",
			Help: "Sessions currently held by the registry.",
		}, func() float64 { return float64(stats.Snapshot().Sessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "session_queue_depth",
			Help: "Events waiting in session mailboxes.",
		}, func() float64 { return float64(stats.QueueDepth()) }),
	)
	return &MetricsHandler{stats: stats, reg: reg, requests: requests}
}

// Instrument counts every request by path and status.
func (h *MetricsHandler) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &responseWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		h.requests.WithLabelValues(r.URL.Path, strconv.Itoa(ww.status)).Inc()
	})
}

// Online serves GET metrics/online.
func (h *MetricsHandler) Online(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]int{"count": h.stats.Online()})
}

// State serves GET metrics/state.
func (h *MetricsHandler) State(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.stats.Snapshot())
}

// Prometheus returns the scrape handler.
func (h *MetricsHandler) Prometheus() http.Handler {
	return promhttp.HandlerFor(h.reg, promhttp.HandlerOpts{})
}
