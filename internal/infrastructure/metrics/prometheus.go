package metrics

import (
	"time"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics implements ports.CacheMetrics with Prometheus collectors.
type CacheMetrics struct {
	lookups       *prometheus.CounterVec
	upstreamCalls *prometheus.CounterVec
	upstreamTime  *prometheus.HistogramVec
	recordErrors  *prometheus.CounterVec
	saves         *prometheus.CounterVec
	latency       *LatencyTracker
}

// NewCacheMetrics registers the cache collectors on reg. latency may be nil.
func NewCacheMetrics(reg prometheus.Registerer, latency *LatencyTracker) *CacheMetrics {
	m := &CacheMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "node_cache_lookups_total",
				Help: "Cache lookups by method and result (hit, miss, default)",
			},
			[]string{"method", "result"},
		),
		upstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "node_cache_upstream_calls_total",
				Help: "Calls forwarded to the upstream node by method and status",
			},
			[]string{"method", "status"},
		),
		upstreamTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "node_cache_upstream_duration_seconds",
				Help: "Upstream call latencies in seconds",
			},
			[]string{"method"},
		),
		recordErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "node_cache_record_errors_total",
				Help: "Upstream results that could not be recorded",
			},
			[]string{"method"},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "node_cache_saves_total",
				Help: "Recorder saves by status",
			},
			[]string{"status"},
		),
		latency: latency,
	}
	reg.MustRegister(m.lookups, m.upstreamCalls, m.upstreamTime, m.recordErrors, m.saves)
	return m
}

func (m *CacheMetrics) ObserveLookup(method jsonrpc.Method, result ports.LookupResult) {
	m.lookups.WithLabelValues(method.String(), string(result)).Inc()
}

func (m *CacheMetrics) ObserveUpstream(method jsonrpc.Method, seconds float64, err error) {
	m.upstreamCalls.WithLabelValues(method.String(), status(err)).Inc()
	m.upstreamTime.WithLabelValues(method.String()).Observe(seconds)
	if m.latency != nil {
		m.latency.Record(method.String(), time.Duration(seconds*float64(time.Second)))
	}
}

func (m *CacheMetrics) ObserveRecordError(method jsonrpc.Method) {
	m.recordErrors.WithLabelValues(method.String()).Inc()
}

func (m *CacheMetrics) ObserveSave(err error) {
	m.saves.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ ports.CacheMetrics = (*CacheMetrics)(nil)
