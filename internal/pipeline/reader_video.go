package pipeline

import (
	"context"
)

func init() {
	RegisterReader(newVideoReader, "mp4", "mov", "webm", "mkv")
}

// VideoFrame is one sampled frame, already decoded to row-major RGBA.
type VideoFrame struct {
	Pixels []byte
	Width  int
	Height int
	Index  int
}

// VideoFrameSampler extracts frames from a video file at the cadence the
// caller requests. Concrete codec access is out of scope per spec's
// non-goals, mirroring its stance on OCR/ASR engines; callers supply a
// sampler (e.g. one shelling out to ffmpeg, as the pack's media tooling
// does for PDF rendering).
type VideoFrameSampler interface {
	SampleFrames(ctx context.Context, path string, frameStep, maxFrames int) ([]VideoFrame, error)
}

// ShotChangeHint narrows frame sampling to shot boundaries instead of a
// fixed stride. The default path works without one; when present it
// overrides frame_step, grounded in yungbote's AnnotateVideoGCS shot-change
// annotations via cloud.google.com/go/videointelligence.
type ShotChangeHint interface {
	ShotBoundaryFrames(ctx context.Context, path string, maxFrames int) ([]int, error)
}

type videoReader struct {
	cfg     VideoConfig
	sampler VideoFrameSampler
	hints   ShotChangeHint
}

func newVideoReader(cfg TextEmbedConfig) Reader {
	return &videoReader{cfg: VideoConfig{FrameStep: 30, MaxFrames: 64}}
}

// NewVideoReaderWithSampler builds a video reader backed by sampler (and,
// optionally, a shot-change hint provider). A reader built through
// NewReaderForPath has neither, and its Read returns an unsupported-extension
// source error.
func NewVideoReaderWithSampler(cfg VideoConfig, sampler VideoFrameSampler, hints ShotChangeHint) Reader {
	return &videoReader{cfg: cfg, sampler: sampler, hints: hints}
}

func (r *videoReader) Read(ctx context.Context, path string, out chan<- RawSegment) error {
	if r.sampler == nil {
		return NewSourceError(SourceUnsupportedExt, path, nil)
	}

	frameStep := r.cfg.FrameStep
	maxFrames := r.cfg.MaxFrames
	if r.hints != nil {
		if boundaries, err := r.hints.ShotBoundaryFrames(ctx, path, maxFrames); err == nil && len(boundaries) > 0 {
			return r.emitAtIndices(ctx, path, boundaries, out)
		}
	}

	frames, err := r.sampler.SampleFrames(ctx, path, frameStep, maxFrames)
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}
	for _, f := range frames {
		seg := RawSegment{
			Kind:       SegmentImage,
			Pixels:     f.Pixels,
			Width:      f.Width,
			Height:     f.Height,
			SourcePath: path,
			FrameIndex: f.Index,
		}
		select {
		case out <- seg:
		case <-ctx.Done():
			return ErrCancelled
		}
	}
	return nil
}

// emitAtIndices re-samples only the frames called out by the shot-change
// hint provider, one request per boundary, rather than sampling on a fixed
// stride.
func (r *videoReader) emitAtIndices(ctx context.Context, path string, indices []int, out chan<- RawSegment) error {
	for _, idx := range indices {
		frames, err := r.sampler.SampleFrames(ctx, path, 1, 1)
		if err != nil || len(frames) == 0 {
			continue
		}
		f := frames[0]
		f.Index = idx
		seg := RawSegment{
			Kind:       SegmentImage,
			Pixels:     f.Pixels,
			Width:      f.Width,
			Height:     f.Height,
			SourcePath: path,
			FrameIndex: f.Index,
		}
		select {
		case out <- seg:
		case <-ctx.Done():
			return ErrCancelled
		}
	}
	return nil
}
