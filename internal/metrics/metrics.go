// Package metrics exposes Prometheus metrics for the dashboard server and the
// monitoring API client. Each Manager owns its registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the latency buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Outbound monitoring API
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	authReplays     prometheus.Counter
	authExpirations prometheus.Counter

	// Dashboard HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Export archive
	archiveLookups *prometheus.CounterVec
	archivesPurged prometheus.Counter

	sessionState *prometheus.GaugeVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "uptime",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
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

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_requests_total",
		Help:      "Requests sent to the monitoring API by method, route and status",
	}, []string{"method", "route", "status"})

	m.apiDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_request_duration_seconds",
		Help:      "Latency of monitoring API requests",
		Buckets:   m.histogramBuckets,
	}, []string{"method", "route"})

	m.authReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_auth_replays_total",
		Help:      "Requests replayed after a 401 and a forced token refresh",
	})

	m.authExpirations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "api_auth_expirations_total",
		Help:      "Requests that ended in an authorization-expired redirect",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Dashboard HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "Dashboard HTTP request latency",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_rate_limited_total",
		Help:      "Dashboard requests rejected by the per-client rate limiter",
	})

	m.archiveLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "export_archive_lookups_total",
		Help:      "Export archive lookups by result (hit or miss)",
	}, []string{"result"})

	m.archivesPurged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "export_archives_purged_total",
		Help:      "Expired export archives removed by the purger",
	})

	m.sessionState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_state",
		Help:      "1 for the current session state, 0 otherwise",
	}, []string{"state"})
}

// All recorders are safe to call on a nil Manager.

func (m *Manager) RecordAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Manager) RecordAuthReplay() {
	if m == nil {
		return
	}
	m.authReplays.Inc()
}

func (m *Manager) RecordAuthExpired() {
	if m == nil {
		return
	}
	m.authExpirations.Inc()
}

func (m *Manager) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (m *Manager) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Manager) RecordArchiveLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.archiveLookups.WithLabelValues(result).Inc()
}

func (m *Manager) RecordArchivesPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.archivesPurged.Add(float64(n))
}

// SetSessionState marks exactly one of the known states as current.
func (m *Manager) SetSessionState(current string, known ...string) {
	if m == nil {
		return
	}
	for _, s := range known {
		v := 0.0
		if s == current {
			v = 1
		}
		m.sessionState.WithLabelValues(s).Set(v)
	}
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
