// Package pipeline implements the extraction, chunking, embedding, and
// sink machinery behind the embedflow module.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Reader is C1's contract: open a source and produce a lazy stream of
// RawSegments. Implementations read incrementally where the underlying
// format allows it (e.g. PDF pages, video frames); text formats commonly
// read the whole file since they're already bounded by disk size.
type Reader interface {
	// Read emits RawSegments for path onto out, returning when the source
	// is exhausted or ctx is cancelled. Callers own out and must not close
	// it; Read only sends.
	Read(ctx context.Context, path string, out chan<- RawSegment) error
}

// ReaderFactory constructs a Reader for a detected kind; kinds are keyed by
// lowercase file extension without the dot ("pdf", "txt", "png", ...).
type ReaderFactory func(cfg TextEmbedConfig) Reader

var readerFactories = make(map[string]ReaderFactory)

// RegisterReader associates a Reader factory with one or more extensions.
func RegisterReader(factory ReaderFactory, extensions ...string) {
	for _, ext := range extensions {
		readerFactories[strings.ToLower(ext)] = factory
	}
}

// NewReaderForPath resolves the Reader to use for path, first by extension
// and, when that yields nothing, by sniffing the file's content via
// mimetype (handles extensionless temp files downloaded by C1's remote
// collaborator).
func NewReaderForPath(path string, cfg TextEmbedConfig) (Reader, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if factory, ok := readerFactories[ext]; ok {
		return factory(cfg), nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, NewSourceError(SourceNotFound, path, err)
	}
	for _, candidate := range mimeExtensions(mt) {
		if factory, ok := readerFactories[candidate]; ok {
			return factory(cfg), nil
		}
	}
	return nil, NewSourceError(SourceUnsupportedExt, path, nil)
}

func mimeExtensions(mt *mimetype.MIME) []string {
	var out []string
	for m := mt; m != nil; m = m.Parent() {
		out = append(out, strings.TrimPrefix(m.Extension(), "."))
	}
	return out
}

// EnumerateSources expands a path into the list of files C1 will read: the
// path itself if it is a file, or every regular file under it (sorted, for
// deterministic per-run ordering) if it is a directory. Enumeration is
// eager here (a directory listing is cheap relative to reading file
// contents), but each file's content is still read lazily by its Reader.
func EnumerateSources(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, NewSourceError(SourceNotFound, root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, NewSourceError(SourceDecodeFailed, root, err)
	}
	sort.Strings(files)
	return files, nil
}
