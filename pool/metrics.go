package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "gridpool"

// Metrics counts lifecycle transitions. A nil *Metrics is valid and records nothing.
type Metrics struct {
	resolutions      *prometheus.CounterVec
	creationFailures prometheus.Counter
	destroyed        prometheus.Counter
	teardownFailures *prometheus.CounterVec
}

// NewMetrics creates the lifecycle counters and registers them with reg.
// A nil registerer creates unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolutions_total",
			Help:      "Pool resolutions by outcome (created, discovered, invalid).",
		}, []string{"outcome"}),
		creationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "creation_failures_total",
			Help:      "Pool resolutions that failed to create a native pool.",
		}),
		destroyed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "destroyed_total",
			Help:      "Managed pools destroyed.",
		}),
		teardownFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "teardown_failures_total",
			Help:      "Failed pool destructions by path (release, destroy).",
		}, []string{"path"}),
	}
}

func (m *Metrics) resolved(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) creationFailed() {
	if m == nil {
		return
	}
	m.creationFailures.Inc()
}

func (m *Metrics) destroyedPool() {
	if m == nil {
		return
	}
	m.destroyed.Inc()
}

func (m *Metrics) teardownFailed(path string) {
	if m == nil {
		return
	}
	m.teardownFailures.WithLabelValues(path).Inc()
}
