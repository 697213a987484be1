// Package telemetry implements the engine's one explicitly shared
// resource (spec §5): a latency histogram that every shard observes into
// concurrently. It is ported from the original's telemetry/mod.rs
// SHARD_LATENCY_HISTOGRAM (_examples/original_source/src/telemetry/mod.rs)
// onto github.com/prometheus/client_golang, whose HistogramVec is safe
// for concurrent Observe calls without any locking on the caller's part.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names match the telemetry contract in spec §6 exactly: the
// core calls Observe for each of these four operations.
const (
	OpAdd             = "add"
	OpRawAdd          = "raw_add"
	OpSearch          = "search"
	OpKeyValuesSearch = "key_values_search"
)

// Sink receives a latency observation for a named operation. It is
// opaque to the core (spec §6): callers never inspect what backs it.
type Sink interface {
	Observe(operation string, elapsed time.Duration)
}

// PrometheusSink backs Sink with a Prometheus HistogramVec labeled by
// operation, registered under the default registry so it is scraped by
// the /metrics HTTP endpoint (spec §6).
type PrometheusSink struct {
	histogram *prometheus.HistogramVec
}

// NewPrometheusSink registers and returns a PrometheusSink. It must be
// called at most once per process; registering the same metric name
// twice panics, matching prometheus's own registration contract.
func NewPrometheusSink() *PrometheusSink {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shard_operation_latency_seconds",
		Help:    "Latency of operations executed at shard level.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 20),
	}, []string{"operation"})
	prometheus.MustRegister(h)
	return &PrometheusSink{histogram: h}
}

// Observe records elapsed against operation's histogram bucket.
func (s *PrometheusSink) Observe(operation string, elapsed time.Duration) {
	s.histogram.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// NoopSink discards every observation. Used in tests and anywhere a Sink
// is required but metrics collection is not under test.
type NoopSink struct{}

func (NoopSink) Observe(string, time.Duration) {}
