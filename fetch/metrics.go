package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch layer and the
// normalization pipelines. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	RecordsTotal    *prometheus.CounterVec
	RecordFailures  *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total logical GET requests by terminal outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts issued.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of transport errors by type.",
		},
		[]string{"error_type"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Total normalized records by entity type.",
		},
		[]string{"entity"},
	)
	recordFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_record_failures_total",
			Help: "Total records dropped by entity type and reason.",
		},
		[]string{"entity", "reason"},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, records, recordFailures)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		RecordsTotal:    records,
		RecordFailures:  recordFailures,
	}
}

// IncRequest increments the requests counter for a terminal outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRecords increments the normalized-records counter for an entity.
func (m *Metrics) IncRecords(entity string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(entity).Inc()
}

// IncRecordFailure increments the dropped-records counter.
func (m *Metrics) IncRecordFailure(entity, reason string) {
	if m == nil {
		return
	}
	m.RecordFailures.WithLabelValues(entity, reason).Inc()
}
