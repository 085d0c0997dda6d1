package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crucial707/detector/internal/models"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ResourceOperations counts lifecycle operations by outcome (success, validation, not_found, unauthorized, internal).
	ResourceOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_operations_total",
			Help: "Total number of resource lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// AuditEntries counts audit log writes by severity.
	AuditEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit log entries written",
		},
		[]string{"severity"},
	)

	// ResourcesTotal is the number of non-deleted resources, refreshed periodically.
	ResourcesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resources_total",
			Help: "Number of monitored (non-deleted) resources",
		},
	)

	// IssuesOpen is the number of unresolved issues, refreshed periodically.
	IssuesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "issues_open_total",
			Help: "Number of unresolved issues",
		},
	)
)

var (
	idPathSegment = regexp.MustCompile(`/([0-9]+|[0-9a-f]{8})(/|$)`)
	initOnce      sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, ResourceOperations, AuditEntries, ResourcesTotal, IssuesOpen)
	})
}

// NormalizePath reduces cardinality by replacing numeric and resource-identifier segments with {id}.
// E.g. /api/resource/ab12cd34 -> /api/resource/{id}. Used when no route pattern is known.
func NormalizePath(path string) string {
	return idPathSegment.ReplaceAllString(path, "/{id}$2")
}

// RecordRequest records duration and count for an HTTP request. route is the matched
// router pattern; when empty the raw path is normalized instead.
func RecordRequest(method, route, path string, statusCode int, durationSeconds float64) {
	if route == "" {
		route = NormalizePath(path)
	}
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, route, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, route, status).Inc()
}

// SetResourceCounts publishes the periodically refreshed gauges.
func SetResourceCounts(resources, openIssues int) {
	ResourcesTotal.Set(float64(resources))
	IssuesOpen.Set(float64(openIssues))
}

// Recorder feeds lifecycle outcomes into the counters above.
type Recorder struct{}

func (Recorder) ResourceOperation(operation, outcome string) {
	ResourceOperations.WithLabelValues(operation, outcome).Inc()
}

func (Recorder) AuditEntry(severity models.Severity) {
	AuditEntries.WithLabelValues(string(severity)).Inc()
}
