package pipeline

import (
	"context"
	"io"
	"net/http"
	"time"
)

func init() {
	RegisterReader(newHTMLReader, "html", "htm")
}

// MainContentExtractor strips boilerplate (nav, ads, scripts) from a raw
// HTML document, returning the readable article text. Concrete HTML engines
// are out of scope per spec's non-goals; callers supply one (e.g. a
// readability-style library) via NewHTMLReaderWithExtractor.
type MainContentExtractor interface {
	ExtractMainContent(html []byte) (string, error)
}

// rawTextExtractor is the zero-value fallback: it returns the document
// unmodified. It exists so htmlReader is usable without a collaborator,
// at the cost of including markup in the emitted segment.
type rawTextExtractor struct{}

func (rawTextExtractor) ExtractMainContent(html []byte) (string, error) {
	return string(html), nil
}

type htmlReader struct {
	client    *http.Client
	extractor MainContentExtractor
}

func newHTMLReader(cfg TextEmbedConfig) Reader {
	return &htmlReader{
		client:    &http.Client{Timeout: 30 * time.Second},
		extractor: rawTextExtractor{},
	}
}

// NewHTMLReaderWithExtractor lets a caller plug in a real boilerplate
// stripper instead of the pass-through default.
func NewHTMLReaderWithExtractor(extractor MainContentExtractor) Reader {
	return &htmlReader{client: &http.Client{Timeout: 30 * time.Second}, extractor: extractor}
}

// Read treats path as a URL when it looks like one, else a local file
// containing HTML.
func (r *htmlReader) Read(ctx context.Context, path string, out chan<- RawSegment) error {
	body, err := r.fetch(ctx, path)
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}

	text, err := r.extractor.ExtractMainContent(body)
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}

	seg := RawSegment{Kind: SegmentText, Content: text, FilePath: path}
	select {
	case out <- seg:
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}

func (r *htmlReader) fetch(ctx context.Context, path string) ([]byte, error) {
	if isRemoteURL(path) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}
	return readLocalFile(path)
}

func isRemoteURL(path string) bool {
	return len(path) > 7 && (path[:7] == "http://" || (len(path) > 8 && path[:8] == "https://"))
}
