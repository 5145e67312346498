package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector exposes the Prometheus instrumentation for the
// recommendation pipeline.
type MetricsCollector struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	sourceLatency  *prometheus.HistogramVec
	sourceFailures *prometheus.CounterVec
	modelBuilds    *prometheus.CounterVec
	modelBuiltAt   *prometheus.GaugeVec
	ingestedEvents *prometheus.CounterVec
	consumerLag    prometheus.Gauge
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Recommendation requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		requestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_latency_seconds",
			Help:    "End-to-end recommendation latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"endpoint"}),

		sourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_source_latency_seconds",
			Help:    "Per-source scoring latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"source"}),

		sourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_source_failures_total",
			Help: "Scoring source failures that degraded a request",
		}, []string{"source"}),

		modelBuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "model_builds_total",
			Help: "Model rebuild count by model",
		}, []string{"model"}),

		modelBuiltAt: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "model_last_build_timestamp_seconds",
			Help: "Unix timestamp of the last successful build",
		}, []string{"model"}),

		ingestedEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_events_ingested_total",
			Help: "Interaction events accepted by kind",
		}, []string{"kind"}),

		consumerLag: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "interaction_consumer_lag_messages",
			Help: "Messages the interaction consumer is behind the topic head",
		}),
	}
}

func (m *MetricsCollector) RecordRequest(endpoint, outcome string, latency time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

func (m *MetricsCollector) RecordSourceLatency(source string, latency time.Duration, ok bool) {
	m.sourceLatency.WithLabelValues(source).Observe(latency.Seconds())
	if !ok {
		m.sourceFailures.WithLabelValues(source).Inc()
	}
}

func (m *MetricsCollector) RecordModelBuild(model string) {
	m.modelBuilds.WithLabelValues(model).Inc()
	m.modelBuiltAt.WithLabelValues(model).SetToCurrentTime()
}

func (m *MetricsCollector) RecordIngestedEvent(kind string) {
	m.ingestedEvents.WithLabelValues(kind).Inc()
}

func (m *MetricsCollector) RecordConsumerLag(lag int64) {
	m.consumerLag.Set(float64(lag))
}
