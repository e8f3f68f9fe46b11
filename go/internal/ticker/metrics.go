package ticker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts refresh outcomes. A nil *Metrics records nothing.
type Metrics struct {
	refreshes *prometheus.CounterVec
	tracked   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "ticker",
			Name:      "refreshes_total",
			Help:      "RefreshSession calls made by this replica, by result.",
		}, []string{"result"}),
		tracked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "ticker",
			Name:      "sessions_tracked",
			Help:      "Open sessions this replica runs an elector for.",
		}),
	}
}

func (m *Metrics) refreshed(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) setTracked(n int) {
	if m == nil {
		return
	}
	m.tracked.Set(float64(n))
}
