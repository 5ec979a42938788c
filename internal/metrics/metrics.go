package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Store metrics
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	entryBytes        *prometheus.HistogramVec

	// Snapshot metrics
	snapshotsTotal *prometheus.CounterVec
	snapshotBytes  *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileboxes_operations_total",
				Help: "Total number of archive store operations",
			},
			[]string{"op", "status"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileboxes_operation_duration_seconds",
				Help:    "Archive store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		entryBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fileboxes_entry_bytes",
				Help:    "Size of entries read or written in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
			[]string{"op"},
		),

		snapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileboxes_snapshots_total",
				Help: "Total number of snapshot actions",
			},
			[]string{"action", "status"},
		),

		snapshotBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileboxes_snapshot_bytes_total",
				Help: "Bytes of archive data snapshotted or restored",
			},
			[]string{"action"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
	}

	reg.MustRegister(r.operationsTotal)
	reg.MustRegister(r.operationDuration)
	reg.MustRegister(r.entryBytes)
	reg.MustRegister(r.snapshotsTotal)
	reg.MustRegister(r.snapshotBytes)
	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	return r
}

// RecordOperation records a finished store operation.
func (r *Registry) RecordOperation(op, status string, duration float64) {
	r.operationsTotal.WithLabelValues(op, status).Inc()
	r.operationDuration.WithLabelValues(op).Observe(duration)
}

// RecordEntryBytes records the payload size of an entry.
func (r *Registry) RecordEntryBytes(op string, size int) {
	r.entryBytes.WithLabelValues(op).Observe(float64(size))
}

// RecordSnapshot records a snapshot action and the archive bytes involved.
func (r *Registry) RecordSnapshot(action, status string, size int64) {
	r.snapshotsTotal.WithLabelValues(action, status).Inc()
	if status == StatusOK {
		r.snapshotBytes.WithLabelValues(action).Add(float64(size))
	}
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// WriteTextfile dumps all metrics in the text exposition format, for
// node_exporter's textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

// Operation statuses
const (
	StatusOK    = "ok"
	StatusMiss  = "miss"
	StatusError = "error"
)

// StatusFor maps an operation outcome to a status label.
func StatusFor(found bool, err error) string {
	switch {
	case err != nil:
		return StatusError
	case !found:
		return StatusMiss
	default:
		return StatusOK
	}
}
