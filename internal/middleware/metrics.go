package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_reconciliation_http_requests_total",
			Help: "Total HTTP requests processed, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stock_reconciliation_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	versionConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_reconciliation_version_conflicts_total",
			Help: "Optimistic lock conflicts surfaced to clients, by route",
		},
		[]string{"route"},
	)
)

// MetricsMiddleware records request counts and latencies per route.
// Route templates (not raw paths) keep cardinality bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		if c.Writer.Status() == 409 {
			versionConflictsTotal.WithLabelValues(route).Inc()
		}
	}
}
