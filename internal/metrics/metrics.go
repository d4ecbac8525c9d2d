// Package metrics registers the portal's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmasri_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "karmasri_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// MergeRecords counts merged display records by entity and outcome
	// (matched, placeholder, local_only).
	MergeRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmasri_merge_records_total",
		Help: "Display records produced by the provenance merge",
	}, []string{"entity", "outcome"})

	// Uploads counts document uploads by result.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmasri_document_uploads_total",
		Help: "Document uploads by result",
	}, []string{"result"})

	// SparkFetches counts SPARK lookups by result.
	SparkFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmasri_spark_fetches_total",
		Help: "SPARK profile fetches by result",
	}, []string{"result"})

	// SnapshotLookups counts portal snapshot reads by result (hit, miss).
	SnapshotLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmasri_snapshot_lookups_total",
		Help: "Profile snapshot cache lookups by result",
	}, []string{"result"})
)

// Middleware records request counts and latency.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
