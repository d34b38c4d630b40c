package pipeline

import (
	"context"

	"github.com/embedflow/embedflow/internal/pipeline/providers"
)

// colbertEmbedder implements the late-interaction row: no pooling, one L2
// per-token vector, padding masked out. The raw backend must additionally
// implement providers.MultiVectorEmbedder; if it doesn't, construction of
// this family from that backend is a configuration error surfaced at the
// first embed call rather than at load time, since the capability is only
// discoverable via a type assertion on the concrete backend.
type colbertEmbedder struct{ *familyEmbedder }

func (c *colbertEmbedder) SupportsLateChunking() bool { return false }

func (c *colbertEmbedder) EmbedBatch(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	if cfg.LateChunking {
		return nil, NewConfigError("late_chunking is not supported for the colbert family")
	}
	mv, ok := c.raw.(providers.MultiVectorEmbedder)
	if !ok {
		return nil, NewConfigError("backend does not support multi-vector output required by the colbert family")
	}
	texts := chunkTexts(chunks)
	raw, err := mv.EmbedBatchMulti(ctx, texts)
	if err != nil {
		return nil, NewInferenceError(InferenceBackendFailure, err)
	}
	units := make([]EmbedUnit, len(chunks))
	for i, perToken := range raw {
		multi := make(MultiVector, 0, len(perToken))
		for _, tok := range perToken {
			if isPaddingVector(tok) {
				continue
			}
			multi = append(multi, l2Normalize(Vector(tok)))
		}
		units[i] = EmbedUnit{
			Kind:     VectorKindMulti,
			Multi:    multi,
			Text:     chunks[i].Text,
			Metadata: unitMetadata(chunks[i], i),
		}
	}
	return units, nil
}

// isPaddingVector treats an all-zero vector as a padding token; the raw
// backend is expected to zero out padding positions before returning them.
func isPaddingVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
