// Package metrics exposes Prometheus instrumentation for the ledger services.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeReplay  = "replay"
	OutcomeFailure = "failure"
)

// Collector owns a private registry so several collectors can coexist in tests
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	operationsTotal     *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	integrityFaults     *prometheus.CounterVec
	outboxDeliveries    *prometheus.CounterVec
	purchasesTotal      *prometheus.CounterVec
}

// NewCollector registers every ledger metric under the service name prefix
func NewCollector(serviceName string) *Collector {
	prefix := strings.ReplaceAll(serviceName, "-", "_")

	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_operations_total",
			Help: "Coin ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_ledger_operation_duration_seconds",
			Help:    "Coin ledger operation duration in seconds, store transaction included",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		integrityFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_integrity_faults_total",
			Help: "Wallets whose cached balance disagrees with the ledger replay",
		}, []string{"check"}),
		outboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_outbox_deliveries_total",
			Help: "Outbox deliveries per sink",
		}, []string{"sink", "status"}),
		purchasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_purchase_messages_total",
			Help: "Purchase callbacks consumed from Kafka by outcome",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.operationsTotal,
		c.operationDuration,
		c.integrityFaults,
		c.outboxDeliveries,
		c.purchasesTotal,
	)

	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOperation records one coin ledger operation
func (c *Collector) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	c.operationsTotal.WithLabelValues(operation, outcome).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IntegrityFault counts a detected balance mismatch
func (c *Collector) IntegrityFault(check string) {
	c.integrityFaults.WithLabelValues(check).Inc()
}

// OutboxDelivery counts one delivery attempt to a sink
func (c *Collector) OutboxDelivery(sink string, err error) {
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeFailure
	}
	c.outboxDeliveries.WithLabelValues(sink, status).Inc()
}

// PurchaseConsumed counts one purchase callback
func (c *Collector) PurchaseConsumed(outcome string) {
	c.purchasesTotal.WithLabelValues(outcome).Inc()
}

// Middleware returns gin middleware that collects HTTP metrics
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape endpoint as a gin handler
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
