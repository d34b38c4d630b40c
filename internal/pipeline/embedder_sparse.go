package pipeline

import (
	"context"
	"math"
)

// sparseEmbedder implements the Splade row: the raw backend is expected to
// return one logit vector per text, indexed by vocabulary id (the "logits
// as a dense vector" representation used by SPLADE-style HTTP backends);
// this layer applies log(1+ReLU(x)) and keeps the nonzero
// entries as the sparse map. No normalization is applied, per the table.
type sparseEmbedder struct{ *familyEmbedder }

func (s *sparseEmbedder) SupportsLateChunking() bool { return false }

func (s *sparseEmbedder) EmbedBatch(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	if cfg.LateChunking {
		return nil, NewConfigError("late_chunking is not supported for the sparse_text family")
	}
	texts := chunkTexts(chunks)
	raw, err := s.raw.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, NewInferenceError(InferenceBackendFailure, err)
	}
	units := make([]EmbedUnit, len(chunks))
	for i, c := range chunks {
		units[i] = EmbedUnit{
			Kind:     VectorKindSparse,
			Sparse:   spladeExpand(raw[i]),
			Text:     c.Text,
			Metadata: unitMetadata(c, i),
		}
	}
	return units, nil
}

// spladeExpand applies SPLADE's activation log(1+ReLU(x)) element-wise to a
// vocabulary-indexed logit vector and drops zero weights; it does no
// pooling over tokens.
func spladeExpand(logits []float32) SparseVector {
	out := make(SparseVector)
	for idx, x := range logits {
		relu := math.Max(0, float64(x))
		if relu == 0 {
			continue
		}
		w := math.Log1p(relu)
		if w > 0 {
			out[uint32(idx)] = float32(w)
		}
	}
	return out
}
