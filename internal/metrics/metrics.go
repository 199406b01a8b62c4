// Package metrics exposes Prometheus instrumentation for recording and playback.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slidecast"

// Metrics groups the engine's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	switchesEmitted     *prometheus.CounterVec
	sinkFailures        *prometheus.CounterVec
	driftCorrections    *prometheus.CounterVec
	recordingsCommitted *prometheus.CounterVec
	recordedEntries     prometheus.Histogram
	playbacksCompleted  prometheus.Counter
	activeSessions      *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		switchesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "switch_requests_total",
				Help:      "Waypoint switch requests emitted by playback",
			},
			[]string{"mode"},
		),
		sinkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_failures_total",
				Help:      "Notification sink calls that returned an error or panicked",
			},
			[]string{"event"},
		),
		driftCorrections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drift_corrections_total",
				Help:      "Durations rewritten after a manual override",
			},
			[]string{"status"}, // status: success, error
		),
		recordingsCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recordings_committed_total",
				Help:      "Recording sessions persisted",
			},
			[]string{"status"},
		),
		recordedEntries: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recorded_entries",
				Help:      "Entries per committed recording",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		playbacksCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "playbacks_completed_total",
				Help:      "Playback sessions that ran to completion",
			},
		),
		activeSessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Sessions currently held by the coordinator",
			},
			[]string{"kind"}, // kind: recording, playback
		),
	}
	m.registry.MustRegister(
		m.switchesEmitted,
		m.sinkFailures,
		m.driftCorrections,
		m.recordingsCommitted,
		m.recordedEntries,
		m.playbacksCompleted,
		m.activeSessions,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SwitchEmitted(mode string) {
	if m == nil {
		return
	}
	m.switchesEmitted.WithLabelValues(mode).Inc()
}

func (m *Metrics) SinkFailed(event string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) DriftCorrected(err error) {
	if m == nil {
		return
	}
	m.driftCorrections.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) RecordingCommitted(entries int, err error) {
	if m == nil {
		return
	}
	m.recordingsCommitted.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.recordedEntries.Observe(float64(entries))
	}
}

func (m *Metrics) PlaybackCompleted() {
	if m == nil {
		return
	}
	m.playbacksCompleted.Inc()
}

// SessionStarted and SessionEnded track the active session gauge.
func (m *Metrics) SessionStarted(kind string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionEnded(kind string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(kind).Dec()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
