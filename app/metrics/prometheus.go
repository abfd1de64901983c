// Package metrics exposes Prometheus counters for every ingestion outcome.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hookrelay"

// Manager owns the collectors. One global instance is registered on a
// private registry served by /metrics.
type Manager struct {
	webhookOutcomes   *prometheus.CounterVec
	forwardFailures   *prometheus.CounterVec
	scheduledRuns     *prometheus.CounterVec
	itemsForwarded    *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	storeLatency      *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	sweptFingerprints prometheus.Counter
}

var registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics registry

var globalManager = NewManager(registry) //nolint:gochecknoglobals // process-wide metrics manager

func init() { //nolint:gochecknoinits // runtime collectors on the private registry
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// NewManager registers every collector on reg.
func NewManager(reg prometheus.Registerer) *Manager {
	auto := promauto.With(reg)

	return &Manager{
		webhookOutcomes: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by outcome (forwarded, ignored, deduped, rejected, failed).",
		}, []string{"outcome", "reason"}),
		forwardFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "forward_failures_total",
			Help:      "Failed gateway forwards by path and failure kind.",
		}, []string{"path", "kind"}),
		scheduledRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Scheduled feed runs by outcome.",
		}, []string{"outcome"}),
		itemsForwarded: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "items_forwarded_total",
			Help:      "Feed items forwarded to the gateway by path.",
		}, []string{"path"}),
		submissions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "items_total",
			Help:      "Submitted feed items by result.",
		}, []string{"result"}),
		storeLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Fingerprint store operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"op"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		sweptFingerprints: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "swept_fingerprints_total",
			Help:      "Fingerprints deleted by the retention sweep.",
		}),
	}
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return registry
}
