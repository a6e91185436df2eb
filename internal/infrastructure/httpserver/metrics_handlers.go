package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "node_cache_http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "node_cache_http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "node_cache_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "node_cache_rpc_batch_size",
			Help:    "Number of calls per JSON-RPC batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, requestsInFlight, batchSize)
}

// GetRequestsTotal returns the requests total metric for middleware use
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the request duration metric for middleware use
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// GetRequestsInFlight returns the in-flight gauge for middleware use
func GetRequestsInFlight() prometheus.Gauge {
	return requestsInFlight
}

// LogMetricsInitialization logs the collectors served on /metrics.
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"node_cache_http_requests_total":    "HTTP requests by method, endpoint, status",
			"node_cache_http_requests_in_flight": "HTTP requests being served",
			"node_cache_rpc_batch_size":         "calls per JSON-RPC batch",
			"node_cache_lookups_total":          "cache lookups by method and result",
			"metrics_endpoint":                  "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsEndpoint serves the default registry, which also holds the cache collectors.
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	s.metricsHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
