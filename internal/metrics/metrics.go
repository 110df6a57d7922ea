package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsdigest"

// Recorder holds the process metrics on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	providerCalls *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	digests       *prometheus.CounterVec
}

// NewRecorder registers the digest collectors plus the Go and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Outbound provider calls by provider, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of outbound provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider", "op"}),
		digests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		r.providerCalls,
		r.callDuration,
		r.digests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveCall records one outbound call that started at start.
func (r *Recorder) ObserveCall(provider, op string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.providerCalls.WithLabelValues(provider, op, outcome(err)).Inc()
	r.callDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

// ObserveDigest records the outcome of a pipeline run.
func (r *Recorder) ObserveDigest(err error) {
	if r == nil {
		return
	}
	r.digests.WithLabelValues(outcome(err)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
