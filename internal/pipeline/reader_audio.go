package pipeline

import (
	"context"
	"os"
)

func init() {
	RegisterReader(newAudioReader, "wav", "mp3", "flac", "m4a", "ogg")
}

// TranscriptSegment is one timestamped span of recognized speech.
type TranscriptSegment struct {
	Text     string
	StartMS  int64
	EndMS    int64
}

// AudioTranscriber is C1's speech-to-text collaborator, shaped after
// yungbote's Speech.TranscribeAudioBytes. This module ships no
// implementation; the caller supplies one. Concrete codec decoding and ASR
// model internals are out of scope per spec's non-goals.
type AudioTranscriber interface {
	TranscribeAudioBytes(ctx context.Context, audio []byte, mimeType string) ([]TranscriptSegment, error)
}

type audioReader struct {
	transcriber AudioTranscriber
}

func newAudioReader(cfg TextEmbedConfig) Reader { return &audioReader{} }

// NewAudioReaderWithTranscriber builds an audio reader backed by transcriber;
// a reader built through NewReaderForPath has none, and its Read returns an
// unsupported-extension source error, matching spec's stance that concrete
// ASR access must be supplied by the caller.
func NewAudioReaderWithTranscriber(transcriber AudioTranscriber) Reader {
	return &audioReader{transcriber: transcriber}
}

func (r *audioReader) Read(ctx context.Context, path string, out chan<- RawSegment) error {
	if r.transcriber == nil {
		return NewSourceError(SourceUnsupportedExt, path, nil)
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return NewSourceError(SourceNotFound, path, err)
	}

	segments, err := r.transcriber.TranscribeAudioBytes(ctx, audio, mimeTypeForAudioExt(path))
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}

	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		seg := RawSegment{
			Kind:     SegmentText,
			Content:  s.Text,
			FilePath: path,
			StartMS:  s.StartMS,
			EndMS:    s.EndMS,
		}
		select {
		case out <- seg:
		case <-ctx.Done():
			return ErrCancelled
		}
	}
	return nil
}

func mimeTypeForAudioExt(path string) string {
	switch extOf(path) {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "m4a":
		return "audio/mp4"
	case "ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
