// Package metrics exposes Prometheus metrics for station availability.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "stationhours"

// Metrics holds Prometheus metrics for the availability engine.
type Metrics struct {
	// ResolutionsTotal counts resolved states by winning source and result.
	ResolutionsTotal *prometheus.CounterVec

	// TransitionsTotal counts open/closed transitions seen by the monitor.
	TransitionsTotal *prometheus.CounterVec

	// OverrideChangesTotal counts manual override changes by action.
	OverrideChangesTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests by route and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration is the API request latency by route.
	HTTPRequestDuration *prometheus.HistogramVec

	// OpenStations is the number of stations open at the last monitor tick.
	OpenStations prometheus.Gauge

	// MonitorTickDuration is the time to evaluate all stations once.
	MonitorTickDuration prometheus.Histogram
}

// New creates metrics registered on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResolutionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of availability resolutions",
			},
			[]string{"source", "open"},
		),

		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Total number of station open/closed transitions",
			},
			[]string{"to"},
		),

		OverrideChangesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "override_changes_total",
				Help:      "Total number of manual override changes",
			},
			[]string{"action"},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "API request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		OpenStations: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_stations",
				Help:      "Number of stations currently open",
			},
		),

		MonitorTickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "monitor_tick_duration_seconds",
				Help:      "Time to evaluate all stations once",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5},
			},
		),
	}
}

var (
	registerOnce sync.Once
	defaultSet   *Metrics
)

// Register creates the process-wide metrics on the default registry.
// Repeated calls return the same instance.
func Register() *Metrics {
	registerOnce.Do(func() {
		defaultSet = New(Namespace, prometheus.DefaultRegisterer)
	})
	return defaultSet
}

// The helpers below are no-ops on a nil receiver.

// ObserveResolution records one resolved state.
func (m *Metrics) ObserveResolution(source string, open bool) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(source, boolLabel(open)).Inc()
}

// IncTransition records a transition to the open or closed state.
func (m *Metrics) IncTransition(open bool) {
	if m == nil {
		return
	}
	to := "closed"
	if open {
		to = "open"
	}
	m.TransitionsTotal.WithLabelValues(to).Inc()
}

// IncOverrideChange records an override action: set, cleared or expired.
func (m *Metrics) IncOverrideChange(action string) {
	if m == nil {
		return
	}
	m.OverrideChangesTotal.WithLabelValues(action).Inc()
}

// ObserveRequest records a finished API request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetOpenStations sets the open-stations gauge.
func (m *Metrics) SetOpenStations(n int) {
	if m == nil {
		return
	}
	m.OpenStations.Set(float64(n))
}

// ObserveTick records the duration of one monitor pass.
func (m *Metrics) ObserveTick(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MonitorTickDuration.Observe(elapsed.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
