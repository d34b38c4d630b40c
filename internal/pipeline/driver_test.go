package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedflow/embedflow/internal/pipeline"
)

// fakeEmbedder turns each chunk's text length into a 1-dimensional dense
// vector, so a driver test can assert on EmbedUnit content without a real
// model backend.
type fakeEmbedder struct {
	sourceAgnostic bool
	batches        int
}

func (f *fakeEmbedder) Family() pipeline.Family   { return pipeline.FamilyDenseText }
func (f *fakeEmbedder) Dimension() int            { return 1 }
func (f *fakeEmbedder) SourceAgnostic() bool       { return f.sourceAgnostic }
func (f *fakeEmbedder) SupportsLateChunking() bool { return false }
func (f *fakeEmbedder) Close() error               { return nil }

func (f *fakeEmbedder) EmbedSentences(sentences []string) ([]pipeline.Vector, error) {
	out := make([]pipeline.Vector, len(sentences))
	for i, s := range sentences {
		out[i] = pipeline.Vector{float32(len(s))}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, chunks []pipeline.Chunk, cfg pipeline.TextEmbedConfig) ([]pipeline.EmbedUnit, error) {
	f.batches++
	out := make([]pipeline.EmbedUnit, len(chunks))
	for i, c := range chunks {
		out[i] = pipeline.EmbedUnit{
			Kind:     pipeline.VectorKindDense,
			Dense:    pipeline.Vector{float32(len(c.Text))},
			Text:     c.Text,
			Metadata: c.SourceMetadata,
		}
	}
	return out, nil
}

func TestDriver_RunEmbedsAndSinksAllChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("One two three. Four five six."), 0o644))

	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.ChunkSize = 3

	chunker, err := pipeline.NewChunker(pipeline.CharCounter{}, cfg)
	require.NoError(t, err)

	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	embedder := &fakeEmbedder{sourceAgnostic: true}
	driver, err := pipeline.NewDriver(chunker, embedder, sink, "docs", cfg)
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Greater(t, result.UnitsSunk, 0)
	assert.Empty(t, result.SourceErrors)

	mem := sink.(*pipeline.MemorySink)
	units := mem.All("docs")
	assert.Equal(t, result.UnitsSunk, len(units))
	for _, u := range units {
		assert.Equal(t, "doc.txt", filepath.Base(u.Metadata["file_path"]))
	}
}

func TestDriver_ChunkIndexIsMonotonicAcrossBatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := strings.Repeat("This is a filler sentence. ", 40) // many short sentences
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.ChunkSize = 20 // small budget so the source splits into many chunks
	cfg.BatchSize = 2  // smaller than the chunk count, forcing multiple EmbedBatch calls

	chunker, err := pipeline.NewChunker(pipeline.CharCounter{}, cfg)
	require.NoError(t, err)
	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	embedder := &fakeEmbedder{sourceAgnostic: true}
	driver, err := pipeline.NewDriver(chunker, embedder, sink, "docs", cfg)
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, embedder.batches, 1) // the fix only matters across >1 batch

	mem := sink.(*pipeline.MemorySink)
	units := mem.All("docs")
	require.Equal(t, result.UnitsSunk, len(units))

	seen := make([]int, len(units))
	for i, u := range units {
		idx, err := strconv.Atoi(u.Metadata["chunk_index"])
		require.NoError(t, err)
		seen[i] = idx
	}
	sort.Ints(seen)
	for i, idx := range seen {
		assert.Equal(t, i, idx, "chunk_index must be dense and monotonic starting at 0, got %v", seen)
	}
}

func TestDriver_ContinueOnErrorSkipsUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(good, []byte("hello world"), 0o644))
	bad := filepath.Join(dir, "b.weirdext")
	require.NoError(t, os.WriteFile(bad, []byte{0x00, 0x01, 0x02}, 0o644))

	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.ContinueOnError = true

	chunker, err := pipeline.NewChunker(pipeline.CharCounter{}, cfg)
	require.NoError(t, err)
	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	driver, err := pipeline.NewDriver(chunker, &fakeEmbedder{sourceAgnostic: true}, sink, "docs", cfg)
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.NotEmpty(t, result.SourceErrors)
	assert.Greater(t, result.UnitsSunk, 0)
}

func TestDriver_RejectsInvalidConfig(t *testing.T) {
	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.ChunkSize = 0

	chunker, err := pipeline.NewChunker(pipeline.CharCounter{}, pipeline.DefaultTextEmbedConfig())
	require.NoError(t, err)
	sink, err := pipeline.NewSink(&pipeline.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	_, err = pipeline.NewDriver(chunker, &fakeEmbedder{sourceAgnostic: true}, sink, "docs", cfg)
	assert.Error(t, err)
}
