package leader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes election state. A nil *Metrics records nothing.
type Metrics struct {
	isLeader    *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		isLeader: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "leader",
			Name:      "is_leader",
			Help:      "1 while this replica holds the lease for the leader id.",
		}, []string{"leader_id"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "leader",
			Name:      "transitions_total",
			Help:      "Leadership gained or lost by this replica.",
		}, []string{"direction"}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "leader",
			Name:      "store_errors_total",
			Help:      "Leader store operations that failed.",
		}, []string{"op"}),
	}
}

func (m *Metrics) setLeader(leaderID string, leading bool) {
	if m == nil {
		return
	}
	if leading {
		m.isLeader.WithLabelValues(leaderID).Set(1)
		m.transitions.WithLabelValues("gained").Inc()
		return
	}
	// leader ids are per session, drop the series
	m.isLeader.DeleteLabelValues(leaderID)
	m.transitions.WithLabelValues("lost").Inc()
}

func (m *Metrics) storeError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}
