package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ChatRequests        *prometheus.CounterVec
	ProviderRetries     *prometheus.CounterVec
	ProviderErrors      *prometheus.CounterVec
	GenerationFallbacks prometheus.Counter
	SideEffectFailures  *prometheus.CounterVec
	RetrievedProducts   prometheus.Histogram
	StageLatency        *prometheus.HistogramVec

	stages *pipelineWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat pipeline runs by outcome.",
		}, []string{"outcome"}),
		ProviderRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Retried external calls by provider.",
		}, []string{"provider"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and kind.",
		}, []string{"provider", "kind"}),
		GenerationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Empty completions answered with the fallback message.",
		}),
		SideEffectFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Best-effort writes that failed, by kind.",
		}, []string{"kind"}),
		RetrievedProducts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_products",
			Help:      "Products attached to a chat response.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Chat pipeline stage latency in milliseconds.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}, []string{"stage"}),
		stages: newPipelineWindow(256),
	}
}

// ObserveStage records one pipeline stage duration.
func (m *Metrics) ObserveStage(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(string(stage)).Observe(float64(d.Microseconds()) / 1000)
	m.stages.observe(stage, d)
}

// ObserveIndicator counts a named pipeline event in the rolling window.
func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.stages.count(name)
}

func (m *Metrics) ObserveChat(outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRetry(provider string) {
	if m == nil {
		return
	}
	m.ProviderRetries.WithLabelValues(provider).Inc()
}

func (m *Metrics) ObserveProviderError(provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.GenerationFallbacks.Inc()
	m.stages.count("generation_fallback")
}

func (m *Metrics) ObserveSideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(kind).Inc()
	m.stages.count(kind + "_failed")
}

func (m *Metrics) ObserveRetrieved(n int) {
	if m == nil {
		return
	}
	m.RetrievedProducts.Observe(float64(n))
}

// StageSnapshot returns rolling latency stats for each pipeline stage.
func (m *Metrics) StageSnapshot() StageSnapshot {
	if m == nil {
		return StageSnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.stages.snapshot()
}

func (m *Metrics) ResetStages() {
	if m == nil {
		return
	}
	m.stages.reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
