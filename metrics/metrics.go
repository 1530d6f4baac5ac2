// Package metrics provides Prometheus metrics for the recommendation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered with and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder owns the pipeline's collectors. A nil *Recorder is valid and
// records nothing, so services can run without metrics.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	recommendations  *prometheus.CounterVec
	stageCandidates  *prometheus.HistogramVec
	llmLatency       prometheus.Histogram
	llmFailures      *prometheus.CounterVec
	breakerOpen      *prometheus.GaugeVec
	profileLatency   prometheus.Histogram
	viewsRecorded    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpRequestTimes *prometheus.HistogramVec
}

// NewRecorder creates and registers the collectors.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "shop",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	r.recommendations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "recommend",
		Name:      "results_total",
		Help:      "Recommendation lists produced, by ranking source.",
	}, []string{"source"})

	r.stageCandidates = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "recommend",
		Name:      "stage_candidates",
		Help:      "Products surviving each candidate filter stage.",
		Buckets:   []float64{0, 1, 3, 5, 10, 20, 50, 100, 500},
	}, []string{"stage"})

	r.llmLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Latency of language model completions.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	r.llmFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "llm",
		Name:      "failures_total",
		Help:      "Ranker fallbacks, by cause.",
	}, []string{"cause"})

	r.breakerOpen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "llm",
		Name:      "breaker_open",
		Help:      "1 while the language model circuit breaker is open.",
	}, []string{"name"})

	r.profileLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "profile",
		Name:      "build_duration_seconds",
		Help:      "Time to aggregate a user profile.",
		Buckets:   prometheus.DefBuckets,
	})

	r.viewsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "activity",
		Name:      "views_recorded_total",
		Help:      "Product views recorded.",
	})

	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"route", "status"})

	r.httpRequestTimes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	r.registry.MustRegister(
		r.recommendations,
		r.stageCandidates,
		r.llmLatency,
		r.llmFailures,
		r.breakerOpen,
		r.profileLatency,
		r.viewsRecorded,
		r.httpRequests,
		r.httpRequestTimes,
	)
	return r
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, used by tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveRecommendation(source string) {
	if r == nil {
		return
	}
	r.recommendations.WithLabelValues(source).Inc()
}

func (r *Recorder) ObserveStage(stage string, size int) {
	if r == nil {
		return
	}
	r.stageCandidates.WithLabelValues(stage).Observe(float64(size))
}

func (r *Recorder) ObserveLLM(d time.Duration) {
	if r == nil {
		return
	}
	r.llmLatency.Observe(d.Seconds())
}

func (r *Recorder) ObserveFallback(cause string) {
	if r == nil {
		return
	}
	r.llmFailures.WithLabelValues(cause).Inc()
}

func (r *Recorder) ObserveBreakerState(name string, open bool) {
	if r == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	r.breakerOpen.WithLabelValues(name).Set(value)
}

func (r *Recorder) ObserveProfile(d time.Duration) {
	if r == nil {
		return
	}
	r.profileLatency.Observe(d.Seconds())
}

func (r *Recorder) ObserveView() {
	if r == nil {
		return
	}
	r.viewsRecorded.Inc()
}

func (r *Recorder) ObserveHTTP(route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, status).Inc()
	r.httpRequestTimes.WithLabelValues(route).Observe(d.Seconds())
}
