// Package prom provides an owner.Observer backed by Prometheus collectors.
// Every series is labeled with the owner name.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "owner"

// Metrics records owner lifecycle events. It implements owner.Observer.
type Metrics struct {
	ownersLive      *prometheus.GaugeVec
	references      *prometheus.GaugeVec
	acquired        *prometheus.CounterVec
	released        *prometheus.CounterVec
	disposed        *prometheus.CounterVec
	disposeFailures *prometheus.CounterVec
	disposePanics   *prometheus.CounterVec
	disposeDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"owner"}
	m := &Metrics{
		ownersLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live",
			Help:      "Owners that are live and not yet disposed.",
		}, labels),
		references: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "references",
			Help:      "Strong references currently held.",
		}, labels),
		acquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquired_total",
			Help:      "References acquired, including handle creation and duplication.",
		}, labels),
		released: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "released_total",
			Help:      "References released.",
		}, labels),
		disposed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disposed_total",
			Help:      "Resources disposed.",
		}, labels),
		disposeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispose_failures_total",
			Help:      "Disposals that returned an error or panicked.",
		}, labels),
		disposePanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispose_panics_total",
			Help:      "Disposals that panicked.",
		}, labels),
		disposeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispose_duration_seconds",
			Help:      "Time spent in the disposer.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, labels),
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ownersLive, m.references, m.acquired, m.released,
		m.disposed, m.disposeFailures, m.disposePanics, m.disposeDuration,
	}
}

// OwnerLive records an owner becoming live.
func (m *Metrics) OwnerLive(name string) {
	m.ownersLive.WithLabelValues(name).Inc()
}

// Acquired records one new reference.
func (m *Metrics) Acquired(name string, _ int) {
	m.acquired.WithLabelValues(name).Inc()
	m.references.WithLabelValues(name).Inc()
}

// Released records one dropped reference.
func (m *Metrics) Released(name string, _ int) {
	m.released.WithLabelValues(name).Inc()
	m.references.WithLabelValues(name).Dec()
}

// Disposed records a disposal, its duration and whether it failed.
func (m *Metrics) Disposed(name string, dur time.Duration, err error, panicked bool) {
	m.ownersLive.WithLabelValues(name).Dec()
	m.disposed.WithLabelValues(name).Inc()
	m.disposeDuration.WithLabelValues(name).Observe(dur.Seconds())
	if err != nil {
		m.disposeFailures.WithLabelValues(name).Inc()
	}
	if panicked {
		m.disposePanics.WithLabelValues(name).Inc()
	}
}
