package embedflow

import "github.com/embedflow/embedflow/internal/pipeline"

// ScoreHead selects how a cross-encoder's raw logits become a relevance
// score.
type ScoreHead = pipeline.ScoreHead

const (
	ScoreHeadSigmoid = pipeline.ScoreHeadSigmoid
	ScoreHeadSoftmax = pipeline.ScoreHeadSoftmax
)

// RankedDocument is one scored, ranked document within a query's result set.
type RankedDocument = pipeline.RankedDocument

// QueryResult is rerank's per-query output.
type QueryResult = pipeline.QueryResult

// CrossEncoderRaw is the narrow capability a reranker backend exposes.
type CrossEncoderRaw = pipeline.CrossEncoderRaw

// QueryDocPair is one (query, document) unit handed to a CrossEncoderRaw
// backend.
type QueryDocPair = pipeline.QueryDocPair

// Reranker implements C6: cross-encoder scoring over (query, document)
// pairs, batched over pairs and sorted per query.
type Reranker = pipeline.Reranker

// NewReranker wraps a CrossEncoderRaw backend.
func NewReranker(raw CrossEncoderRaw, batchSize int) *Reranker {
	return pipeline.NewReranker(raw, batchSize)
}

// NewHTTPCrossEncoder resolves a cloud cross-encoder provider by name and
// wraps it for use with NewReranker.
func NewHTTPCrossEncoder(providerName string, head ScoreHead, config map[string]interface{}) (CrossEncoderRaw, error) {
	return pipeline.NewHTTPCrossEncoder(providerName, head, config)
}

// CombineRanked fuses two or more already-ranked document lists with
// Reciprocal Rank Fusion, for callers merging a dense-vector and a
// sparse-vector candidate set before handing them to Rerank's top_k cut.
func CombineRanked(k float64, lists ...[]RankedDocument) []RankedDocument {
	return pipeline.CombineRanked(k, lists...)
}
