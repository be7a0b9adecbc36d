// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yunusmujadidi/purchase-order/analytics"
	"github.com/yunusmujadidi/purchase-order/models"
)

// Import row outcomes
const (
	OutcomeImported  = "imported"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
)

// Collector groups the service metrics on a private registry
type Collector struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	ordersByStage   *prometheus.GaugeVec
}

// NewCollector creates a collector with every metric registered
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_import_rows_total",
				Help: "Spreadsheet rows processed by the importer, by outcome",
			},
			[]string{"outcome"},
		),
		ordersByStage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orders_by_stage",
				Help: "Orders currently in each production stage",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.importRows,
		c.ordersByStage,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry exposes the underlying registry (tests and custom exporters)
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records a request count and latency per matched route
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordImport adds one import's row outcomes
func (c *Collector) RecordImport(imported, duplicates, skipped int) {
	c.importRows.WithLabelValues(OutcomeImported).Add(float64(imported))
	c.importRows.WithLabelValues(OutcomeDuplicate).Add(float64(duplicates))
	c.importRows.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
}

// SetStageDistribution replaces the orders-by-stage gauge. Stages absent from dist read 0.
func (c *Collector) SetStageDistribution(dist []analytics.StageCount) {
	counts := make(map[models.Stage]int, len(dist))
	for _, sc := range dist {
		counts[sc.Stage] = sc.Count
	}
	for _, stage := range models.Stages {
		c.ordersByStage.WithLabelValues(string(stage)).Set(float64(counts[stage]))
	}
}

var (
	instance *Collector
	once     sync.Once
)

// Get returns the process-wide collector, creating it on first use
func Get() *Collector {
	once.Do(func() {
		instance = NewCollector()
	})
	return instance
}
