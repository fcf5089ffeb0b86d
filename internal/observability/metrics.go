package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bridge's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	polls          prometheus.Counter
	framesSent     prometheus.Counter
	writeFailures  prometheus.Counter
	suppressed     prometheus.Counter
	sourceDegraded *prometheus.CounterVec
	lastTransmit   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_polls_total",
			Help: "Source reads performed by the bridge loop.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_sent_total",
			Help: "Frames written and flushed to the serial port.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_write_failures_total",
			Help: "Transmission attempts that failed to write or flush.",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_transmissions_suppressed_total",
			Help: "Due transmissions skipped by event monitoring.",
		}),
		sourceDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_source_degraded_total",
			Help: "Source reads that fell back to the default record.",
		}, []string{"backend"}),
		lastTransmit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_last_transmit_timestamp_seconds",
			Help: "Unix time of the last successful transmission.",
		}),
	}

	reg.MustRegister(m.polls, m.framesSent, m.writeFailures, m.suppressed, m.sourceDegraded, m.lastTransmit)
	return m
}

func (m *Metrics) ObservePoll() {
	if m == nil {
		return
	}
	m.polls.Inc()
}

func (m *Metrics) ObserveFrameSent(at time.Time) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.lastTransmit.Set(float64(at.UnixNano()) / 1e9)
}

func (m *Metrics) ObserveWriteFailure() {
	if m == nil {
		return
	}
	m.writeFailures.Inc()
}

func (m *Metrics) ObserveSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) ObserveSourceDegraded(backend string) {
	if m == nil {
		return
	}
	m.sourceDegraded.WithLabelValues(backend).Inc()
}
