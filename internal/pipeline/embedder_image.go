package pipeline

import "context"

// imageEmbedder implements the image-text (CLIP/SigLIP) row: a single L2
// vector per input, regardless of whether the input chunk is text (the
// query side) or an image (the document side) — both sides share a
// projection into the same space, which the raw backend is responsible for
// dispatching on internally based on what chunkTexts hands it (a path for
// image chunks, literal text otherwise).
type imageEmbedder struct{ *familyEmbedder }

func (i *imageEmbedder) SupportsLateChunking() bool { return false }

func (i *imageEmbedder) EmbedBatch(ctx context.Context, chunks []Chunk, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	if cfg.LateChunking {
		return nil, NewConfigError("late_chunking is not supported for the image_text family")
	}
	texts := chunkTexts(chunks)
	raw, err := i.raw.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, NewInferenceError(InferenceBackendFailure, err)
	}
	units := make([]EmbedUnit, len(chunks))
	for idx, c := range chunks {
		units[idx] = EmbedUnit{
			Kind:     VectorKindDense,
			Dense:    l2Normalize(Vector(raw[idx])),
			Text:     c.Text,
			Metadata: unitMetadata(c, idx),
		}
	}
	return units, nil
}
