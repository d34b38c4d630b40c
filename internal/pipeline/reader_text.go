package pipeline

import (
	"context"
	"os"
)

func init() {
	RegisterReader(newTextReader, "txt", "md", "markdown")
}

// textReader reads a plain-text or markdown file whole and emits it as a
// single Text segment; C2 is responsible for splitting it into chunks.
type textReader struct{}

func newTextReader(cfg TextEmbedConfig) Reader { return &textReader{} }

func (r *textReader) Read(ctx context.Context, path string, out chan<- RawSegment) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}
	seg := RawSegment{Kind: SegmentText, Content: string(content), FilePath: path}
	select {
	case out <- seg:
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}
