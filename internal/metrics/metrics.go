// Package metrics exposes the announcer's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "announcer"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sweeps              prometheus.Counter
	sweepDuration       prometheus.Histogram
	channelsSwept       prometheus.Gauge
	channelResults      *prometheus.CounterVec
	announcements       *prometheus.CounterVec
	fetchErrors         prometheus.Counter
	channelsDeactivated prometheus.Counter
	quotaUnits          *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed sweeps.",
		}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a full sweep.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		channelsSwept: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_last_sweep",
			Help:      "Active channels visited by the last sweep.",
		}),
		channelResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_results_total",
			Help:      "Per-channel sweep results by status.",
		}, []string{"status"}),
		announcements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Send attempts by outcome.",
		}, []string{"outcome"}),
		fetchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Content source fetches that failed.",
		}),
		channelsDeactivated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_deactivated_total",
			Help:      "Channels deactivated after a permanent delivery failure.",
		}),
		quotaUnits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "youtube_quota_units_total",
			Help:      "YouTube Data API quota units spent by operation.",
		}, []string{"operation"}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Announcement events published to the broker by result.",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveSweep(d time.Duration, channels int) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepDuration.Observe(d.Seconds())
	m.channelsSwept.Set(float64(channels))
}

func (m *Metrics) ChannelResult(status string) {
	if m == nil {
		return
	}
	m.channelResults.WithLabelValues(status).Inc()
}

func (m *Metrics) Announcement(outcome string) {
	if m == nil {
		return
	}
	m.announcements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FetchError() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}

func (m *Metrics) ChannelDeactivated() {
	if m == nil {
		return
	}
	m.channelsDeactivated.Inc()
}

func (m *Metrics) QuotaSpent(operation string, units int) {
	if m == nil || units <= 0 {
		return
	}
	m.quotaUnits.WithLabelValues(operation).Add(float64(units))
}

func (m *Metrics) EventPublished(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}
