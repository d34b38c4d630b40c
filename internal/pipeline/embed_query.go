package pipeline

import "context"

// EmbedQuery implements the §6 embed_query(texts, embedder, config?)
// operation: a direct, unbuffered call into the embedder for ad hoc text
// (as opposed to embed_file/embed_directory, which run the full C5 driver
// over a source). Each text is wrapped as a minimal Chunk so it flows
// through the same family post-processing as a pipeline run.
//
// When cache is non-nil, each text is looked up by CacheKey(model, text)
// first; misses are embedded and their dense vectors written back.
func EmbedQuery(ctx context.Context, texts []string, embedder Embedder, cfg TextEmbedConfig, cache QueryCache, model string) ([]EmbedUnit, error) {
	if cache == nil {
		return embedChunks(ctx, texts, embedder, cfg)
	}

	units := make([]EmbedUnit, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		key := CacheKey(model, t)
		v, ok, err := cache.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			units[i] = EmbedUnit{Kind: VectorKindDense, Dense: v, Text: t, Metadata: map[string]string{"chunk_index": itoa(i)}}
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return units, nil
	}

	embedded, err := embedChunks(ctx, missTexts, embedder, cfg)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		units[idx] = embedded[j]
		units[idx].Metadata = cloneMetadata(embedded[j].Metadata)
		units[idx].Metadata["chunk_index"] = itoa(idx)
		if embedded[j].Kind == VectorKindDense {
			_ = cache.Set(ctx, CacheKey(model, texts[idx]), embedded[j].Dense, 0)
		}
	}
	return units, nil
}

func embedChunks(ctx context.Context, texts []string, embedder Embedder, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Text: t}
	}
	stampChunkIndices(chunks)
	return embedder.EmbedBatch(ctx, chunks, cfg)
}
