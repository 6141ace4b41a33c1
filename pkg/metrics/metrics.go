package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pojntfx/storage-throughput/pkg/speedtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of a throughput run.
type Metrics struct {
	Throughput        *prometheus.GaugeVec
	OperationDuration *prometheus.HistogramVec
	Iterations        *prometheus.CounterVec
	Failures          *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{gatherer: reg}

	m.Throughput = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "throughput_bytes_per_second",
			Help: "Average throughput of the last measurement in bytes per second",
		},
		[]string{"target", "size", "op"},
	)

	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "throughput_operation_duration_seconds",
			Help:    "Duration of single timed storage operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12),
		},
		[]string{"target", "op"},
	)

	m.Iterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throughput_iterations_total",
			Help: "Total number of timed storage operations",
		},
		[]string{"target", "op"},
	)

	m.Failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throughput_failures_total",
			Help: "Total number of failed measurements and unavailable targets",
		},
		[]string{"target", "kind"},
	)

	reg.MustRegister(m.Throughput, m.OperationDuration, m.Iterations, m.Failures)

	return m
}

// ForTarget returns an observer that labels operations with target.
func (m *Metrics) ForTarget(target string) speedtest.Observer {
	return &targetObserver{m, target}
}

// RecordResult publishes the speeds of a finished payload size.
func (m *Metrics) RecordResult(target string, r speedtest.Result) {
	if r.Failed() {
		m.Failures.WithLabelValues(target, "measurement").Inc()

		return
	}

	size := strconv.Itoa(r.Size)

	m.Throughput.WithLabelValues(target, size, string(speedtest.OperationWrite)).Set(r.WriteBytesPerSec())
	m.Throughput.WithLabelValues(target, size, string(speedtest.OperationRead)).Set(r.ReadBytesPerSec())

	if r.Unreliable() {
		m.Failures.WithLabelValues(target, "degenerate").Inc()
	}
}

// RecordRun counts runs that stopped early.
func (m *Metrics) RecordRun(run speedtest.Run) {
	if run.Err != nil {
		m.Failures.WithLabelValues(run.Target, "run").Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type targetObserver struct {
	m      *Metrics
	target string
}

func (o *targetObserver) ObserveOperation(op speedtest.Operation, size int, d time.Duration) {
	o.m.OperationDuration.WithLabelValues(o.target, string(op)).Observe(d.Seconds())
	o.m.Iterations.WithLabelValues(o.target, string(op)).Inc()
}
