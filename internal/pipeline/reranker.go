package pipeline

import (
	"context"
	"math"
	"sort"

	"github.com/embedflow/embedflow/internal/pipeline/providers"
)

// ScoreHead selects how a cross-encoder's raw logits become a relevance
// score, chosen at load time per the model checkpoint's classification head.
type ScoreHead string

const (
	ScoreHeadSigmoid ScoreHead = "sigmoid" // single positive-class logit
	ScoreHeadSoftmax ScoreHead = "softmax" // two-class [negative, positive] head
)

// RankedDocument is one scored, ranked document within a single query's
// result set.
type RankedDocument struct {
	Rank  int
	Score float64
	Text  string
}

// QueryResult is rerank's per-query output.
type QueryResult struct {
	Query     string
	Documents []RankedDocument
}

// CrossEncoderRaw is the narrow capability a reranker backend exposes: for
// each (query, document) pair (flattened, caller-ordered), return the raw
// classification-head logits.
type CrossEncoderRaw interface {
	// ScoreBatch returns one logit row per pair; row width is 1 for a
	// sigmoid head, 2 for a softmax head.
	ScoreBatch(ctx context.Context, pairs []QueryDocPair) ([][]float32, error)
	Head() ScoreHead
	Close() error
}

// QueryDocPair is one (query, document) concatenation unit handed to the
// cross-encoder backend, already templated.
type QueryDocPair struct {
	Query    string
	Document string
}

// Reranker implements C6: cross-encoder scoring over (query, document)
// pairs, batched over pairs and sorted per query.
type Reranker struct {
	raw       CrossEncoderRaw
	batchSize int
}

// NewReranker wraps a CrossEncoderRaw backend. batchSize controls how many
// (query, document) pairs are scored per backend call; it defaults to 32
// when <= 0.
func NewReranker(raw CrossEncoderRaw, batchSize int) *Reranker {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Reranker{raw: raw, batchSize: batchSize}
}

// ComputeScores implements compute_scores: for every query, the score of
// every document in documents, in input order (not sorted).
func (r *Reranker) ComputeScores(ctx context.Context, queries, documents []string) ([][]float32, error) {
	pairs := make([]QueryDocPair, 0, len(queries)*len(documents))
	for _, q := range queries {
		for _, d := range documents {
			pairs = append(pairs, QueryDocPair{Query: q, Document: d})
		}
	}

	logits, err := r.scoreAllPairs(ctx, pairs)
	if err != nil {
		return nil, err
	}

	scores := make([][]float32, len(queries))
	for qi := range queries {
		row := make([]float32, len(documents))
		for di := range documents {
			row[di] = headScore(r.raw.Head(), logits[qi*len(documents)+di])
		}
		scores[qi] = row
	}
	return scores, nil
}

// Rerank implements rerank: for every query, score every document and
// return the top_k in descending-score order with 1-based ranks; ties keep
// original input order (a stable sort over a descending comparator).
func (r *Reranker) Rerank(ctx context.Context, queries, documents []string, topK int) ([]QueryResult, error) {
	scores, err := r.ComputeScores(ctx, queries, documents)
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, len(queries))
	for qi, q := range queries {
		type scored struct {
			idx   int
			score float32
		}
		ranked := make([]scored, len(documents))
		for di := range documents {
			ranked[di] = scored{idx: di, score: scores[qi][di]}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

		k := topK
		if k <= 0 || k > len(ranked) {
			k = len(ranked)
		}
		docs := make([]RankedDocument, k)
		for i := 0; i < k; i++ {
			docs[i] = RankedDocument{
				Rank:  i + 1,
				Score: float64(ranked[i].score),
				Text:  documents[ranked[i].idx],
			}
		}
		results[qi] = QueryResult{Query: q, Documents: docs}
	}
	return results, nil
}

func (r *Reranker) scoreAllPairs(ctx context.Context, pairs []QueryDocPair) ([][]float32, error) {
	out := make([][]float32, 0, len(pairs))
	for start := 0; start < len(pairs); start += r.batchSize {
		end := start + r.batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch, err := r.raw.ScoreBatch(ctx, pairs[start:end])
		if err != nil {
			return nil, NewInferenceError(InferenceBackendFailure, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func headScore(head ScoreHead, logits []float32) float32 {
	switch head {
	case ScoreHeadSoftmax:
		if len(logits) < 2 {
			return 0
		}
		return float32(softmaxPositive(float64(logits[0]), float64(logits[1])))
	default:
		if len(logits) == 0 {
			return 0
		}
		return float32(sigmoid(float64(logits[0])))
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func softmaxPositive(negLogit, posLogit float64) float64 {
	m := math.Max(negLogit, posLogit)
	en, ep := math.Exp(negLogit-m), math.Exp(posLogit-m)
	return ep / (en + ep)
}

// httpCrossEncoder is a cloud-provider-backed CrossEncoderRaw, the
// HTTP-batch analogue of embedder.go's providers.RawEmbedder backends: it
// delegates templating and scoring to a registered cross-encoder provider
// factory rather than running a local forward pass.
type httpCrossEncoder struct {
	raw  providers.RawEmbedder
	head ScoreHead
}

// NewHTTPCrossEncoder resolves a cloud cross-encoder provider by name (the
// same providers.Kind registry C4 uses) and wraps it for use with
// NewReranker. The provider's EmbedBatch is repurposed here: it receives the
// already-templated "query [SEP] document" strings and returns one logit
// per pair in Dense[0].
func NewHTTPCrossEncoder(providerName string, head ScoreHead, config map[string]interface{}) (CrossEncoderRaw, error) {
	factory, err := providers.Get(providers.KindCloud, providerName)
	if err != nil {
		return nil, NewModelLoadError(ModelIOFailure, err)
	}
	raw, err := factory(config)
	if err != nil {
		return nil, NewModelLoadError(ModelIOFailure, err)
	}
	return &httpCrossEncoder{raw: raw, head: head}, nil
}

func (h *httpCrossEncoder) Head() ScoreHead { return h.head }
func (h *httpCrossEncoder) Close() error    { return h.raw.Close() }

func (h *httpCrossEncoder) ScoreBatch(ctx context.Context, pairs []QueryDocPair) ([][]float32, error) {
	texts := make([]string, len(pairs))
	for i, p := range pairs {
		texts[i] = templatePair(p)
	}
	embedded, err := h.raw.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(embedded))
	for i, row := range embedded {
		if len(row) == 0 {
			out[i] = []float32{0}
			continue
		}
		out[i] = row[:1]
	}
	return out, nil
}

// templatePair concatenates a query/document pair using the simple
// [CLS] q [SEP] d [SEP] template. It is the only template used; there is no
// option to select a Qwen3-style <Instruct>/<Query>/<Document> template.
func templatePair(p QueryDocPair) string {
	return "[CLS] " + p.Query + " [SEP] " + p.Document + " [SEP]"
}

// CombineRanked fuses two already-ranked document lists (e.g. a dense-vector
// search and a sparse-vector search over the same corpus) with Reciprocal
// Rank Fusion, a supplemental retrieval-side helper kept from the teacher's
// RRFReranker and generalized to the RankedDocument shape documents already
// carry after Rerank. It is not part of the C6 contract itself — rerank
// scores a single candidate set with one cross-encoder call graph — but
// composes with it when a caller wants to merge two candidate sets before
// handing them to Rerank's top_k cut.
func CombineRanked(k float64, lists ...[]RankedDocument) []RankedDocument {
	if k <= 0 {
		k = 60
	}
	scores := make(map[string]float64)
	first := make(map[string]RankedDocument)
	for _, list := range lists {
		for _, doc := range list {
			rrf := 1.0 / (float64(doc.Rank) + k)
			scores[doc.Text] += rrf
			if _, ok := first[doc.Text]; !ok {
				first[doc.Text] = doc
			}
		}
	}

	combined := make([]RankedDocument, 0, len(scores))
	for text, score := range scores {
		doc := first[text]
		doc.Score = score
		combined = append(combined, doc)
	}
	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Score > combined[j].Score })
	for i := range combined {
		combined[i].Rank = i + 1
	}
	return combined
}
