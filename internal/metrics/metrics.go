package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bus_tracker"

// TrackerMetrics counts what happens to samples between the source and the remote database.
type TrackerMetrics struct {
	SamplesReceived prometheus.Counter
	SamplesDropped  *prometheus.CounterVec // by reason
	Publishes       *prometheus.CounterVec // by sink and result
	Tracking        prometheus.Gauge
}

// NewTrackerMetrics creates the tracker collectors and registers them with reg.
func NewTrackerMetrics(reg prometheus.Registerer) *TrackerMetrics {
	m := &TrackerMetrics{
		SamplesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_received_total",
			Help:      "Location samples delivered by the location source.",
		}),
		SamplesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_dropped_total",
			Help:      "Location samples discarded before publishing.",
		}, []string{"reason"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish attempts to the remote database.",
		}, []string{"sink", "result"}),
		Tracking: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracking",
			Help:      "1 while tracking is on.",
		}),
	}

	reg.MustRegister(m.SamplesReceived, m.SamplesDropped, m.Publishes, m.Tracking)
	return m
}
