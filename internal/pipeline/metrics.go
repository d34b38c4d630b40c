package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation for a Driver, attached with
// WithMetrics. NewMetrics registers the collectors at once against the
// supplied registerer (or prometheus.DefaultRegisterer when none is given);
// metric names are fixed, so two Metrics on one registerer collide and the
// second registration is ignored.
type Metrics struct {
	ChunksProduced   prometheus.Counter
	BatchesEmbedded  prometheus.Counter
	UnitsSunk        prometheus.Counter
	SinkRetries      prometheus.Counter
	QueueDepth       prometheus.Gauge
	BatchLatency     prometheus.Histogram
}

// NewMetrics constructs and registers a Metrics set. Registration errors
// (e.g. duplicate registration in tests that build multiple drivers) are
// swallowed: metrics are an observability aid, never load-bearing for the
// pipeline's correctness.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ChunksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedflow_chunks_produced_total",
			Help: "Chunks emitted by the chunking stage.",
		}),
		BatchesEmbedded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedflow_batches_embedded_total",
			Help: "Batches handed to the embedder.",
		}),
		UnitsSunk: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedflow_units_sunk_total",
			Help: "EmbedUnits successfully delivered to a sink.",
		}),
		SinkRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedflow_sink_retries_total",
			Help: "Sink upsert retries after a transient failure.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embedflow_queue_depth",
			Help: "Chunks in the batch currently being assembled.",
		}),
		BatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "embedflow_batch_latency_seconds",
			Help:    "Latency of a single embed-batch forward call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{
		m.ChunksProduced, m.BatchesEmbedded, m.UnitsSunk,
		m.SinkRetries, m.QueueDepth, m.BatchLatency,
	} {
		_ = reg.Register(c)
	}
	return m
}
