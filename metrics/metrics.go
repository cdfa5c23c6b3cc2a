// Package metrics exposes the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DocumentSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_document_saves_total",
		Help: "Total number of successful document writes",
	})

	DocumentSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_document_save_failures_total",
		Help: "Total number of failed document writes",
	})

	DocumentCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_document_cache_hits_total",
		Help: "Document loads served from the read cache",
	})

	DocumentCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_document_cache_misses_total",
		Help: "Document loads that went to the backend",
	})

	PageViewsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_page_views_tracked_total",
		Help: "Page views recorded per category",
	}, []string{"category"})

	CompletionsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_completions_tracked_total",
		Help: "Guide completions recorded per category",
	}, []string{"category"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request durations by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
