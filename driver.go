package embedflow

import (
	"github.com/embedflow/embedflow/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Metrics is C10's Prometheus surface: counters and histograms for every
// stage of the pipeline.
type Metrics = pipeline.Metrics

// NewMetrics registers the pipeline's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return pipeline.NewMetrics(reg)
}

// Driver is C5: the staged read/chunk/embed/sink orchestrator tying C1-C7
// together, with bounded channels for back-pressure and ordering
// preserved per source.
type Driver = pipeline.Driver

// DriverOption configures a Driver at construction time.
type DriverOption = pipeline.DriverOption

// RunResult reports how many units a Driver run sank and which sources
// failed along the way.
type RunResult = pipeline.RunResult

// SourceFailure pairs a source path with the error that prevented it from
// being embedded, when ContinueOnError lets the run proceed past it.
type SourceFailure = pipeline.SourceFailure

// NewDriver builds a Driver wiring chunker, embedder and sink together
// under cfg.
func NewDriver(chunker Chunker, embedder Embedder, sink Sink, sinkName string, cfg TextEmbedConfig, opts ...DriverOption) (*Driver, error) {
	return pipeline.NewDriver(chunker, embedder, sink, sinkName, cfg, opts...)
}

// WithMetrics attaches a Metrics collector to a Driver.
func WithMetrics(m *Metrics) DriverOption {
	return pipeline.WithMetrics(m)
}

// WithLogger attaches a structured Logger to a Driver.
func WithLogger(l Logger) DriverOption {
	return pipeline.WithLogger(l)
}

// WithRateLimits caps the embed and sink stages to the given rates,
// smoothing bursts against a remote model server or vector database.
func WithRateLimits(embedPerSecond, sinkPerSecond rate.Limit) DriverOption {
	return pipeline.WithRateLimits(embedPerSecond, sinkPerSecond)
}
