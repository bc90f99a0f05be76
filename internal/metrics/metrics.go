// Package metrics exposes Prometheus counters for the Birthday Manager service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector and the registry they are registered on.
// A nil *Manager is valid and records nothing, which keeps callers free of nil checks.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	notifications *prometheus.CounterVec
	imports       *prometheus.CounterVec
	importedRows  *prometheus.CounterVec
	schedulerRuns *prometheus.CounterVec
	feedEvents    prometheus.Gauge
	feedRebuilds  prometheus.Counter
	feedBuildTime prometheus.Histogram
	anniversaries prometheus.Gauge
}

// NewManager builds a Manager on a private registry unless WithRegistry says otherwise.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "birthday",
		subsystem:        "manager",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by route, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request latency",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"route", "method"})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notifications_total",
		Help:        "Notification attempts by channel and delivery status",
		ConstLabels: m.constLabels,
	}, []string{"channel", "status"})

	m.imports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "imports_total",
		Help:        "Completed imports by exchange format",
		ConstLabels: m.constLabels,
	}, []string{"format"})

	m.importedRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "imported_contacts_total",
		Help:        "Contacts stored by imports, by exchange format",
		ConstLabels: m.constLabels,
	}, []string{"format"})

	m.schedulerRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scheduler_runs_total",
		Help:        "Scheduler ticks by outcome (sent, skipped, idle, error)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.feedEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "feed_events",
		Help:        "Number of VEVENTs in the last generated calendar feed",
		ConstLabels: m.constLabels,
	})

	m.feedRebuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "feed_rebuilds_total",
		Help:        "Successful calendar feed rebuilds",
		ConstLabels: m.constLabels,
	})

	m.feedBuildTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "feed_rebuild_duration_seconds",
		Help:        "Time spent generating the calendar feed",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.anniversaries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "anniversaries_today",
		Help:        "Contacts whose anniversary falls on the current day",
		ConstLabels: m.constLabels,
	})
}

// RecordHTTPRequest counts a finished request and observes its latency.
func (m *Manager) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordNotification counts one delivery attempt.
func (m *Manager) RecordNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

// RecordImport counts a finished import and the contacts it stored.
func (m *Manager) RecordImport(format string, stored int) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(format).Inc()
	m.importedRows.WithLabelValues(format).Add(float64(stored))
}

// RecordSchedulerRun counts a scheduler tick by outcome.
func (m *Manager) RecordSchedulerRun(outcome string) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(outcome).Inc()
}

// RecordFeedRebuild tracks a successful feed generation.
func (m *Manager) RecordFeedRebuild(events, today int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.feedRebuilds.Inc()
	m.feedEvents.Set(float64(events))
	m.anniversaries.Set(float64(today))
	m.feedBuildTime.Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
