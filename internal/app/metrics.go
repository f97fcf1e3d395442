package app

import (
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the recorder's prometheus collectors on a private registry,
// so tests can build as many managers as they like.
type Metrics struct {
	Registry *prometheus.Registry

	sessions    *prometheus.GaugeVec
	resolutions *prometheus.CounterVec
	unrouted    *prometheus.CounterVec
	anomalies   prometheus.Counter
	failures    *prometheus.CounterVec
	recorded    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roomrec_sessions",
			Help: "Live peer sessions by state.",
		}, []string{"state"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrec_resolutions_total",
			Help: "Signaling messages routed, by resolution tier.",
		}, []string{"tier"}),
		unrouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrec_unrouted_total",
			Help: "Signaling messages no session claimed, by message type.",
		}, []string{"type"}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomrec_anomalies_total",
			Help: "Messages that matched more than one session equally well.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrec_failures_total",
			Help: "Peer sessions that failed, by reason.",
		}, []string{"reason"}),
		recorded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomrec_recorded_bytes",
			Help: "Bytes written by all recordings since start.",
		}),
	}
	m.Registry.MustRegister(
		m.sessions, m.resolutions, m.unrouted, m.anomalies, m.failures, m.recorded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Resolved(t Tier) { m.resolutions.WithLabelValues(t.String()).Inc() }

func (m *Metrics) Unrouted(msgType string) { m.unrouted.WithLabelValues(msgType).Inc() }

func (m *Metrics) Anomaly() { m.anomalies.Inc() }

func (m *Metrics) Failure(reason string) { m.failures.WithLabelValues(reason).Inc() }

// SetSessions publishes a gauge per state, zeros included.
func (m *Metrics) SetSessions(counts map[domain.PeerState]int) {
	for _, s := range domain.AllStates {
		m.sessions.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}

func (m *Metrics) SetRecordedBytes(n int64) { m.recorded.Set(float64(n)) }
