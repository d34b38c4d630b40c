package pipeline

import "context"

// RunFile embeds a single file per §6's embed_file(path, embedder, config?,
// sink?): when sink is nil, an in-memory sink collects every unit and the
// caller gets the full list back; when sink is non-nil, units stream to it
// and RunFile returns nil on success (the "| ()" alternative of the
// contract).
func RunFile(ctx context.Context, path string, embedder Embedder, cfg TextEmbedConfig, sink Sink, sinkName string) ([]EmbedUnit, error) {
	return runSource(ctx, path, embedder, cfg, sink, sinkName)
}

// RunDirectory embeds every file under path per §6's embed_directory, with
// the same sink-or-collect behavior as RunFile. extensions, when non-empty,
// restricts enumeration to files whose extension is listed.
func RunDirectory(ctx context.Context, path string, embedder Embedder, cfg TextEmbedConfig, sink Sink, sinkName string, extensions []string) ([]EmbedUnit, error) {
	if len(extensions) == 0 {
		return runSource(ctx, path, embedder, cfg, sink, sinkName)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		allowed[normalizeExt(e)] = true
	}
	all, err := EnumerateSources(path)
	if err != nil {
		return nil, err
	}
	var filtered []string
	for _, p := range all {
		if allowed[extOf(p)] {
			filtered = append(filtered, p)
		}
	}
	return runFiles(ctx, filtered, embedder, cfg, sink, sinkName)
}

// RunImageDirectory embeds every image file under path per §6's
// embed_image_directory(path, embedder, sink?).
func RunImageDirectory(ctx context.Context, path string, embedder Embedder, sink Sink, sinkName string) ([]EmbedUnit, error) {
	cfg := DefaultTextEmbedConfig()
	return RunDirectory(ctx, path, embedder, cfg, sink, sinkName,
		[]string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp"})
}

// RunAudioFile embeds one audio file per §6's embed_audio_file(path,
// audio_decoder, embedder, config?); decoder supplies the ASR backend since
// concrete speech engines are out of scope.
func RunAudioFile(ctx context.Context, path string, decoder AudioTranscriber, embedder Embedder, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	reader := NewAudioReaderWithTranscriber(decoder)
	return runWithReader(ctx, path, reader, embedder, cfg)
}

// RunWebpage embeds a single URL per §6's embed_webpage(url, embedder).
func RunWebpage(ctx context.Context, url string, embedder Embedder) ([]EmbedUnit, error) {
	cfg := DefaultTextEmbedConfig()
	reader := newHTMLReader(cfg)
	return runWithReader(ctx, url, reader, embedder, cfg)
}

// RunVideoFile embeds one video file per §6's embed_video_file(path,
// embedder, video_config); sampler supplies frame extraction since concrete
// codec access is out of scope.
func RunVideoFile(ctx context.Context, path string, sampler VideoFrameSampler, hints ShotChangeHint, embedder Embedder, videoCfg VideoConfig) ([]EmbedUnit, error) {
	reader := NewVideoReaderWithSampler(videoCfg, sampler, hints)
	cfg := DefaultTextEmbedConfig()
	return runWithReader(ctx, path, reader, embedder, cfg)
}

func runSource(ctx context.Context, path string, embedder Embedder, cfg TextEmbedConfig, sink Sink, sinkName string) ([]EmbedUnit, error) {
	return runFiles(ctx, []string{path}, embedder, cfg, sink, sinkName)
}

func runFiles(ctx context.Context, paths []string, embedder Embedder, cfg TextEmbedConfig, sink Sink, sinkName string) ([]EmbedUnit, error) {
	collecting := sink == nil
	if collecting {
		sink, _ = NewSink(&SinkConfig{Type: "memory"})
		sinkName = "embed_ops"
	}

	chunker, err := NewChunker(CharCounter{}, cfg)
	if err != nil {
		return nil, err
	}
	driver, err := NewDriver(chunker, embedder, sink, sinkName, cfg)
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if _, err := driver.Run(ctx, p); err != nil {
			return nil, err
		}
	}

	if !collecting {
		return nil, nil
	}
	mem, ok := sink.(*MemorySink)
	if !ok {
		return nil, nil
	}
	return mem.All(sinkName), nil
}

// runWithReader drives a single already-constructed Reader (audio, video,
// HTML) through the chunk/embed stages directly, bypassing C1's
// extension-based reader resolution since these sources need an explicit
// collaborator the registry can't supply.
func runWithReader(ctx context.Context, path string, reader Reader, embedder Embedder, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	segCh := make(chan RawSegment, cfg.BufferSize)
	errCh := make(chan error, 1)
	go func() {
		defer close(segCh)
		errCh <- reader.Read(ctx, path, segCh)
	}()

	var segments []RawSegment
	for seg := range segCh {
		segments = append(segments, seg)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	chunker, err := NewChunker(CharCounter{}, cfg)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.Chunk(segments, cfg)
	if err != nil {
		return nil, err
	}
	// segments is a single source read in full above, so chunks is that
	// source's complete ordered list: index before batching, same as the
	// driver's chunkStage, so chunk_index survives the batch_size loop below.
	stampChunkIndices(chunks)

	var units []EmbedUnit
	for start := 0; start < len(chunks); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := embedder.EmbedBatch(ctx, chunks[start:end], cfg)
		if err != nil {
			return nil, NewInferenceError(InferenceBackendFailure, err)
		}
		units = append(units, batch...)
	}
	return units, nil
}

func normalizeExt(e string) string {
	if len(e) > 0 && e[0] == '.' {
		return e[1:]
	}
	return e
}
