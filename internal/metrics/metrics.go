// Package metrics exposes Prometheus metrics for the fee tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"teamfee/internal/core"
)

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Manager owns a private registry and every collector registered on it.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	mutations           *prometheus.CounterVec
	publishFailures     prometheus.Counter
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	peopleCount         prometheus.Gauge
	teamCount           prometheus.Gauge
	billableTotal       prometheus.Gauge
	feeTotal            prometheus.Gauge
	sheetSyncs          *prometheus.CounterVec
	lastSyncUnix        prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewManager creates a manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "teamfee",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.mutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "mutations_total",
		Help:      "Repository mutations by collection, operation and result",
	}, []string{"collection", "operation", "result"})
	m.publishFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "change_publish_failures_total",
		Help:      "Change notifications that could not be published",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.peopleCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "people",
		Help:      "Number of people tracked",
	})
	m.teamCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "teams",
		Help:      "Number of teams tracked",
	})
	m.billableTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "billable_total",
		Help:      "Sum of billable amounts",
	})
	m.feeTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "fee_total",
		Help:      "Total fee across all people",
	})
	m.sheetSyncs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "summary_syncs_total",
		Help:      "Summary writes to the spreadsheet by result",
	}, []string{"result"})
	m.lastSyncUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "last_summary_sync_unix",
		Help:      "Unix time of the last successful summary write",
	})

	return m
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// RecordMutation counts one repository mutation.
func (m *Manager) RecordMutation(collection, operation string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(collection, operation, result(err)).Inc()
}

// RecordPublishFailure counts a change notification that was dropped.
func (m *Manager) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSummary updates the state gauges from a computed summary.
func (m *Manager) ObserveSummary(s core.Summary) {
	if m == nil {
		return
	}
	m.peopleCount.Set(float64(s.PeopleCount))
	m.teamCount.Set(float64(len(s.Teams)))
	m.billableTotal.Set(s.Billable)
	m.feeTotal.Set(s.Total)
}

// RecordSync counts a summary write and stamps the last success.
func (m *Manager) RecordSync(err error, at time.Time) {
	if m == nil {
		return
	}
	m.sheetSyncs.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.lastSyncUnix.Set(float64(at.Unix()))
	}
}
