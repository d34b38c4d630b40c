package embedflow

import (
	"context"
	"image"

	"github.com/embedflow/embedflow/internal/pipeline"
)

// Reader is C1's contract: open a source and produce a lazy stream of
// RawSegments.
type Reader = pipeline.Reader

// RawSegment is the C1->C2 handoff unit.
type RawSegment = pipeline.RawSegment

// NewReaderForPath resolves the Reader to use for path, by extension first
// and content-sniffed MIME second.
func NewReaderForPath(path string, cfg TextEmbedConfig) (Reader, error) {
	return pipeline.NewReaderForPath(path, cfg)
}

// EnumerateSources expands a path into the list of files a Driver will
// read: the path itself if it is a file, or every regular file under it
// (sorted, for deterministic per-run ordering) if it is a directory.
func EnumerateSources(root string) ([]string, error) {
	return pipeline.EnumerateSources(root)
}

// ScopedTempFile guarantees a downloaded remote object is removed on every
// exit path, panic included.
type ScopedTempFile = pipeline.ScopedTempFile

// RemoteObjectReader downloads an S3 object to a ScopedTempFile and
// delegates to the Reader matching its extension.
type RemoteObjectReader = pipeline.RemoteObjectReader

// NewRemoteObjectReader builds a RemoteObjectReader using the default AWS
// SDK v2 credential chain, targeting region.
func NewRemoteObjectReader(ctx context.Context, region string, cfg TextEmbedConfig) (*RemoteObjectReader, error) {
	return pipeline.NewRemoteObjectReader(ctx, region, cfg)
}

// PageRasterizer renders one PDF page to an image for OCR fallback.
type PageRasterizer = pipeline.PageRasterizer

// OCRProvider recognizes text in a rasterized page image.
type OCRProvider = pipeline.OCRProvider

// NewPDFReaderWithOCR builds a PDF reader with an OCR fallback path wired in.
func NewPDFReaderWithOCR(cfg TextEmbedConfig, rasterizer PageRasterizer, ocr OCRProvider) Reader {
	return pipeline.NewPDFReaderWithOCR(cfg, rasterizer, ocr)
}

// MainContentExtractor strips boilerplate from a raw HTML document.
type MainContentExtractor = pipeline.MainContentExtractor

// NewHTMLReaderWithExtractor builds an HTML reader using a real boilerplate
// stripper instead of the pass-through default.
func NewHTMLReaderWithExtractor(extractor MainContentExtractor) Reader {
	return pipeline.NewHTMLReaderWithExtractor(extractor)
}

// TranscriptSegment is one timestamped span of recognized speech.
type TranscriptSegment = pipeline.TranscriptSegment

// AudioTranscriber is C1's speech-to-text collaborator.
type AudioTranscriber = pipeline.AudioTranscriber

// NewAudioReaderWithTranscriber builds an audio reader backed by
// transcriber.
func NewAudioReaderWithTranscriber(transcriber AudioTranscriber) Reader {
	return pipeline.NewAudioReaderWithTranscriber(transcriber)
}

// VideoFrame is one sampled video frame, already decoded to row-major RGBA.
type VideoFrame = pipeline.VideoFrame

// VideoFrameSampler extracts frames from a video file.
type VideoFrameSampler = pipeline.VideoFrameSampler

// ShotChangeHint narrows frame sampling to shot boundaries.
type ShotChangeHint = pipeline.ShotChangeHint

// NewVideoReaderWithSampler builds a video reader backed by sampler and,
// optionally, a shot-change hint provider.
func NewVideoReaderWithSampler(cfg VideoConfig, sampler VideoFrameSampler, hints ShotChangeHint) Reader {
	return pipeline.NewVideoReaderWithSampler(cfg, sampler, hints)
}

// AnnotateThumbnail scales src to fit maxDim and draws an optional caption
// bar, returning encoded PNG bytes.
func AnnotateThumbnail(src image.Image, label string, maxDim int) ([]byte, error) {
	return pipeline.AnnotateThumbnail(src, label, maxDim)
}
