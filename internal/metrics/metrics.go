package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for diagnostics and the HTTP surface.
type Metrics struct {
	DiagnosesTotal        *prometheus.CounterVec   // Diagnoses produced, by resource and verdict
	DiagnosisDuration     *prometheus.HistogramVec // Wall time per diagnosis operation
	FetchErrorsTotal      *prometheus.CounterVec   // Failed cluster reads, by resource and error kind
	HTTPRequestsTotal     *prometheus.CounterVec   // HTTP requests, by route and status code
	HTTPRequestDuration   *prometheus.HistogramVec // HTTP latency, by route
	BulkItemFailuresTotal *prometheus.CounterVec   // Bulk items degraded to an error result
}

// NewMetrics creates and registers the collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DiagnosesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubediagnose_diagnoses_total",
			Help: "Total number of diagnoses produced",
		}, []string{"resource", "status"}),
		DiagnosisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kubediagnose_diagnosis_duration_seconds",
			Help:    "Duration of diagnosis operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubediagnose_fetch_errors_total",
			Help: "Total number of failed Kubernetes API reads",
		}, []string{"resource", "kind"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubediagnose_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kubediagnose_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		BulkItemFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubediagnose_bulk_item_failures_total",
			Help: "Total number of bulk items that could not be analyzed",
		}, []string{"resource"}),
	}

	reg.MustRegister(
		m.DiagnosesTotal,
		m.DiagnosisDuration,
		m.FetchErrorsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BulkItemFailuresTotal,
	)
	return m
}

// ObserveDiagnosis records one produced verdict
func (m *Metrics) ObserveDiagnosis(resource, status string) {
	if m == nil {
		return
	}
	m.DiagnosesTotal.WithLabelValues(resource, status).Inc()
}

// ObserveDuration records the duration of an operation started at start
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.DiagnosisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveFetchError records a failed cluster read
func (m *Metrics) ObserveFetchError(resource, kind string) {
	if m == nil {
		return
	}
	m.FetchErrorsTotal.WithLabelValues(resource, kind).Inc()
}

// ObserveBulkFailure records a bulk item that was degraded to an error result
func (m *Metrics) ObserveBulkFailure(resource string) {
	if m == nil {
		return
	}
	m.BulkItemFailuresTotal.WithLabelValues(resource).Inc()
}

// ObserveRequest records a served HTTP request
func (m *Metrics) ObserveRequest(route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
