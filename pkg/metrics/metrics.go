package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ecopark"

// Registry bundles the service's Prometheus collectors.
type Registry struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// MongoDB
	MongoOperationsTotal   *prometheus.CounterVec
	MongoOperationDuration *prometheus.HistogramVec

	// Kafka / outbox
	KafkaMessagesPublished *prometheus.CounterVec
	KafkaMessagesConsumed  *prometheus.CounterVec
	OutboxPending          prometheus.Gauge

	// Business
	EntryTransitionsTotal *prometheus.CounterVec
	AllocationsTotal      *prometheus.CounterVec
	AllocationConflicts   prometheus.Counter
	LedgerPostingsTotal   *prometheus.CounterVec
	ReconciliationRuns    *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates the registry with all collectors registered.
func New(service string) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": service}

	m := &Registry{registry: reg}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "http_requests_total",
		Help:        "Total HTTP requests by method, path and status.",
		ConstLabels: constLabels,
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request latency.",
		ConstLabels: constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.MongoOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "mongodb_operations_total",
		Help:        "MongoDB operations by collection, operation and outcome.",
		ConstLabels: constLabels,
	}, []string{"collection", "operation", "status"})

	m.MongoOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "mongodb_operation_duration_seconds",
		Help:        "MongoDB operation latency.",
		ConstLabels: constLabels,
		Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"collection", "operation"})

	m.KafkaMessagesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "kafka_messages_published_total",
		Help:        "Messages published by topic and outcome.",
		ConstLabels: constLabels,
	}, []string{"topic", "status"})

	m.KafkaMessagesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "kafka_messages_consumed_total",
		Help:        "Messages consumed by topic and outcome.",
		ConstLabels: constLabels,
	}, []string{"topic", "status"})

	m.OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "outbox_pending_events",
		Help:        "Outbox events waiting for publication.",
		ConstLabels: constLabels,
	})

	m.EntryTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "intake_entry_transitions_total",
		Help:        "Committed entry transitions by target status.",
		ConstLabels: constLabels,
	}, []string{"park", "to_status"})

	m.AllocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "storage_allocations_total",
		Help:        "Allocation attempts by outcome.",
		ConstLabels: constLabels,
	}, []string{"park", "outcome"})

	m.AllocationConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "storage_allocation_conflicts_total",
		Help:        "Optimistic allocation conflicts, including retried ones.",
		ConstLabels: constLabels,
	})

	m.LedgerPostingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "stock_ledger_postings_total",
		Help:        "Committed stock movements by kind.",
		ConstLabels: constLabels,
	}, []string{"park", "kind"})

	m.ReconciliationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "stock_reconciliation_runs_total",
		Help:        "Ledger reconciliation runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"park", "outcome"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "circuit_breaker_state",
		Help:        "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		ConstLabels: constLabels,
	}, []string{"name"})

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.MongoOperationsTotal,
		m.MongoOperationDuration,
		m.KafkaMessagesPublished,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.EntryTransitionsTotal,
		m.AllocationsTotal,
		m.AllocationConflicts,
		m.LedgerPostingsTotal,
		m.ReconciliationRuns,
		m.CircuitBreakerState,
	)

	return m
}

// PrometheusRegistry exposes the underlying registry for the /metrics
// handler.
func (m *Registry) PrometheusRegistry() *prometheus.Registry {
	return m.registry
}
