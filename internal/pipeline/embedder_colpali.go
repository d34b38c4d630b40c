package pipeline

import (
	"context"

	"github.com/embedflow/embedflow/internal/pipeline/providers"
)

// colpaliEmbedder implements the document-page row: per-image-patch
// vectors, L2 per patch. Document-page embedders are never source-agnostic
// (see familyEmbedder.SourceAgnostic) since a page's patch grid is scoped
// to the document it came from.
type colpaliEmbedder struct{ *familyEmbedder }

func (c *colpaliEmbedder) SupportsLateChunking() bool { return false }

func (c *colpaliEmbedder) EmbedBatch(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	if cfg.LateChunking {
		return nil, NewConfigError("late_chunking is not supported for the colpali family")
	}
	for _, ch := range chunks {
		if !ch.IsImage {
			return nil, NewConfigError("the colpali family requires document-page (image) chunks")
		}
	}
	mv, ok := c.raw.(providers.MultiVectorEmbedder)
	if !ok {
		return nil, NewConfigError("backend does not support multi-vector output required by the colpali family")
	}
	texts := chunkTexts(chunks)
	raw, err := mv.EmbedBatchMulti(ctx, texts)
	if err != nil {
		return nil, NewInferenceError(InferenceBackendFailure, err)
	}
	units := make([]EmbedUnit, len(chunks))
	for i, perPatch := range raw {
		multi := make(MultiVector, len(perPatch))
		for j, patch := range perPatch {
			multi[j] = l2Normalize(Vector(patch))
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
