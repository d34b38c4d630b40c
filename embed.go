package embedflow

import (
	"context"

	"github.com/embedflow/embedflow/internal/pipeline"
)

// EmbedQuery embeds one or more query strings directly, bypassing C1/C2,
// per §6's embed_query(texts, embedder, config?, cache?, model?).
func EmbedQuery(ctx context.Context, texts []string, embedder Embedder, cfg TextEmbedConfig, cache QueryCache, model string) ([]EmbedUnit, error) {
	return pipeline.EmbedQuery(ctx, texts, embedder, cfg, cache, model)
}

// EmbedFile runs C1-C7 over a single file per §6's embed_file(path,
// embedder, config?, sink?). When sink is nil, every unit produced is
// collected and returned; when sink is non-nil, units stream to it and
// EmbedFile returns a nil slice on success.
func EmbedFile(ctx context.Context, path string, embedder Embedder, cfg TextEmbedConfig, sink Sink, sinkName string) ([]EmbedUnit, error) {
	return pipeline.RunFile(ctx, path, embedder, cfg, sink, sinkName)
}

// EmbedDirectory runs C1-C7 over every file under path per §6's
// embed_directory(path, embedder, config?, sink?, extensions?). extensions,
// when non-empty, restricts which files are enumerated.
func EmbedDirectory(ctx context.Context, path string, embedder Embedder, cfg TextEmbedConfig, sink Sink, sinkName string, extensions []string) ([]EmbedUnit, error) {
	return pipeline.RunDirectory(ctx, path, embedder, cfg, sink, sinkName, extensions)
}

// EmbedImageDirectory runs C1-C7 over every image file under path per §6's
// embed_image_directory(path, embedder, sink?).
func EmbedImageDirectory(ctx context.Context, path string, embedder Embedder, sink Sink, sinkName string) ([]EmbedUnit, error) {
	return pipeline.RunImageDirectory(ctx, path, embedder, sink, sinkName)
}

// EmbedAudioFile transcribes path with decoder and embeds the resulting
// transcript segments, per §6's embed_audio_file(path, audio_decoder,
// embedder, config?). Concrete speech-to-text engines are out of scope;
// decoder supplies that capability.
func EmbedAudioFile(ctx context.Context, path string, decoder AudioTranscriber, embedder Embedder, cfg TextEmbedConfig) ([]EmbedUnit, error) {
	return pipeline.RunAudioFile(ctx, path, decoder, embedder, cfg)
}

// EmbedWebpage fetches url, extracts its readable text and embeds it, per
// §6's embed_webpage(url, embedder).
func EmbedWebpage(ctx context.Context, url string, embedder Embedder) ([]EmbedUnit, error) {
	return pipeline.RunWebpage(ctx, url, embedder)
}

// EmbedVideoFile samples frames from path with sampler (optionally guided
// by hints) and embeds them, per §6's embed_video_file(path, embedder,
// video_config). Concrete video codec access is out of scope; sampler
// supplies that capability.
func EmbedVideoFile(ctx context.Context, path string, sampler VideoFrameSampler, hints ShotChangeHint, embedder Embedder, videoCfg VideoConfig) ([]EmbedUnit, error) {
	return pipeline.RunVideoFile(ctx, path, sampler, hints, embedder, videoCfg)
}
