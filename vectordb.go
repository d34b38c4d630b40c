package embedflow

import "github.com/embedflow/embedflow/internal/pipeline"

// Metric identifies the similarity metric an index is built for.
type Metric = pipeline.Metric

const (
	MetricL2     = pipeline.MetricL2
	MetricIP     = pipeline.MetricIP
	MetricCosine = pipeline.MetricCosine
)

// Sink is C7's adapter contract: create_index/delete_index/convert/upsert
// against a concrete vector-database client (Milvus, Qdrant, Chromem,
// SQLite) or the in-memory backend used by tests and embed_query-only
// callers.
type Sink = pipeline.Sink

// SinkConfig configures a Sink at construction time.
type SinkConfig = pipeline.SinkConfig

// NewSink builds a Sink for cfg.Type ("milvus", "qdrant", "chromem",
// "sqlite", "memory"). Backends register themselves at init time.
func NewSink(cfg *SinkConfig) (Sink, error) {
	return pipeline.NewSink(cfg)
}

// EmbedUnit is the atomic pipeline output: a vector together with the
// text/image span it describes and its metadata.
type EmbedUnit = pipeline.EmbedUnit

// Vector is a dense embedding.
type Vector = pipeline.Vector

// SparseVector is a sparse embedding: vocabulary index to positive weight.
type SparseVector = pipeline.SparseVector

// MultiVector holds one vector per token (late-interaction / document-page
// families).
type MultiVector = pipeline.MultiVector

// VectorKind tags which variant of EmbedUnit's vector fields is populated.
type VectorKind = pipeline.VectorKind

const (
	VectorKindDense  = pipeline.VectorKindDense
	VectorKindSparse = pipeline.VectorKindSparse
	VectorKindMulti  = pipeline.VectorKindMulti
)
