package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	backendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobassist",
		Name:      "backend_requests_total",
		Help:      "Outbound calls to the assistant backend by operation and outcome.",
	}, []string{"op", "outcome"})

	backendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jobassist",
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of outbound backend calls.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"op"})

	exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobassist",
		Name:      "exports_total",
		Help:      "Document exports by format and outcome.",
	}, []string{"format", "outcome"})

	revisionsAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobassist",
		Name:      "revisions_appended_total",
		Help:      "Revisions appended to the local history by document type and source.",
	}, []string{"document_type", "source"})

	throttled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobassist",
		Name:      "throttled_requests_total",
		Help:      "Requests rejected with 429 by rate limit group.",
	}, []string{"group"})
)

func init() {
	Registry.MustRegister(
		backendRequests,
		backendDuration,
		exportsTotal,
		revisionsAppended,
		throttled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveBackendCall records one backend call.
func ObserveBackendCall(op, outcome string, elapsed time.Duration) {
	backendRequests.WithLabelValues(op, outcome).Inc()
	backendDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncExport counts an export attempt.
func IncExport(format, outcome string) {
	exportsTotal.WithLabelValues(format, outcome).Inc()
}

// IncRevision counts a revision appended from source ("chat", "edit", "seed").
func IncRevision(documentType, source string) {
	revisionsAppended.WithLabelValues(documentType, source).Inc()
}

// IncThrottled counts a request rejected by the rate limiter.
func IncThrottled(group string) {
	throttled.WithLabelValues(group).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
