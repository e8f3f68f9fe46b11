package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordEventProcessed(string, bool, time.Duration) {}
func (n *NoOpMetricsCollector) RecordBatchProcessed(int, time.Duration)          {}
func (n *NoOpMetricsCollector) RecordOutboxLag(int)                              {}
func (n *NoOpMetricsCollector) RecordPublishAttempt(string, int, bool)           {}

// MetricPublisher wraps an EventPublisher with metrics collection
type MetricPublisher struct {
	publisher EventPublisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher EventPublisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	start := time.Now()
	err := p.publisher.Publish(ctx, event)
	p.metrics.RecordEventProcessed(event.EventType, err == nil, time.Since(start))
	return err
}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	eventCounter    *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
	batchSize       prometheus.Histogram
	batchDuration   prometheus.Histogram
	outboxLag       prometheus.Gauge
	publishAttempts *prometheus.CounterVec
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		eventCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events published, by type and status.",
		}, []string{"event_type", "status"}),
		eventDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "outbox",
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing one event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "outbox",
			Name:      "batch_size",
			Help:      "Events handled per fallback sweep.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one fallback sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		outboxLag: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "outbox",
			Name:      "pending_events",
			Help:      "Unsent events in the outbox.",
		}),
		publishAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "outbox",
			Name:      "publish_attempts_total",
			Help:      "Publish attempts, by type, attempt number and status.",
		}, []string{"event_type", "attempt", "status"}),
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *PrometheusMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	m.eventCounter.WithLabelValues(eventType, statusLabel(success)).Inc()
	m.eventDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordBatchProcessed(count int, duration time.Duration) {
	m.batchSize.Observe(float64(count))
	m.batchDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordOutboxLag(lag int) {
	m.outboxLag.Set(float64(lag))
}

func (m *PrometheusMetrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	m.publishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), statusLabel(success)).Inc()
}
