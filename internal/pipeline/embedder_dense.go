package pipeline

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/embedflow/embedflow/internal/pipeline/providers"
)

// denseEmbedder implements the dense-text row of §4.4: mean/CLS pooling is
// assumed already performed by the raw backend (it returns one vector per
// input); this layer's job is L2 normalization and, when requested, late
// chunking.
type denseEmbedder struct{ *familyEmbedder }

func (d *denseEmbedder) SupportsLateChunking() bool { return true }

func (d *denseEmbedder) EmbedBatch(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	if cfg.LateChunking {
		return d.embedLateChunked(ctx, chunks, cfg)
	}
	texts := chunkTexts(chunks)
	raw, err := d.raw.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, NewInferenceError(InferenceBackendFailure, err)
	}
	if len(raw) != len(chunks) {
		return nil, NewInferenceError(InferenceBackendFailure,
			NewConfigError("backend returned mismatched batch size"))
	}
	units := make([]EmbedUnit, len(chunks))
	for i, c := range chunks {
		units[i] = EmbedUnit{
			Kind:     VectorKindDense,
			Dense:    l2Normalize(Vector(raw[i])),
			Text:     c.Text,
			Metadata: unitMetadata(c, i),
		}
	}
	return units, nil
}

// embedLateChunked runs the model once per distinct source document (one
// RawSegment's full Content, shared across all chunks cut from it) and
// mean-pools each chunk's token range out of that single forward pass's
// per-token output, per §4.4's late-chunking rule. This needs a raw backend
// that exposes per-token vectors (providers.MultiVectorEmbedder) and a
// tokenizer attached via WithTokenizer to translate each chunk's
// SentenceSpans into that token range. Most HTTP-style embedding APIs,
// including the openai backend, only return one pooled vector per input and
// cannot support this; EmbedBatch rejects late-chunked requests against them
// with a config error rather than silently degrading to per-chunk
// embedding.
func (d *denseEmbedder) embedLateChunked(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	mv, ok := d.raw.(providers.MultiVectorEmbedder)
	if !ok || d.tokenizer == nil {
		return nil, NewConfigError("late_chunking requires a raw backend implementing providers.MultiVectorEmbedder and a tokenizer attached via WithTokenizer")
	}

	units := make([]EmbedUnit, len(chunks))
	bySource := make(map[string][]int)
	var order []string
	for i, c := range chunks {
		if c.DocText == "" || len(c.SentenceSpans) == 0 {
			return nil, NewConfigError("late_chunking requires chunks produced with TextEmbedConfig.LateChunking set")
		}
		key := c.DocText
		if _, seen := bySource[key]; !seen {
			order = append(order, key)
		}
		bySource[key] = append(bySource[key], i)
	}

	for _, docText := range order {
		idxs := bySource[docText]

		perToken, err := mv.EmbedBatchMulti(ctx, []string{docText})
		if err != nil {
			return nil, NewInferenceError(InferenceBackendFailure, err)
		}
		if len(perToken) != 1 {
			return nil, NewInferenceError(InferenceBackendFailure,
				NewConfigError("backend returned mismatched per-document token batch"))
		}
		docTokens := perToken[0]

		for _, idx := range idxs {
			c := chunks[idx]
			spans := d.tokenizer.SentenceToTokenOffsets(docText, c.SentenceSpans)
			span := spans[0]
			vec, err := meanPoolTokenRange(docTokens, span.TokenStart, span.TokenEnd)
			if err != nil {
				return nil, NewInferenceError(InferenceBackendFailure, err)
			}
			units[idx] = EmbedUnit{
				Kind:     VectorKindDense,
				Dense:    l2Normalize(vec),
				Text:     c.Text,
				Metadata: unitMetadata(c, idx),
			}
		}
	}
	return units, nil
}

// meanPoolTokenRange mean-pools docTokens[start:end) into a single vector,
// the token range one chunk's late-chunking span maps to within one
// full-document forward pass.
func meanPoolTokenRange(docTokens [][]float32, start, end int) (Vector, error) {
	if start < 0 {
		start = 0
	}
	if end > len(docTokens) {
		end = len(docTokens)
	}
	if start >= end {
		return nil, errors.New("empty token range for late-chunked span")
	}
	dim := len(docTokens[start])
	sum := make([]float64, dim)
	for _, tok := range docTokens[start:end] {
		for i, v := range tok {
			sum[i] += float64(v)
		}
	}
	n := float64(end - start)
	out := make(Vector, dim)
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}
