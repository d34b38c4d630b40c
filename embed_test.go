package embedflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embedflow "github.com/embedflow/embedflow"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Family() embedflow.Family   { return embedflow.FamilyDenseText }
func (fakeEmbedder) Dimension() int             { return 1 }
func (fakeEmbedder) SourceAgnostic() bool       { return true }
func (fakeEmbedder) SupportsLateChunking() bool { return false }
func (fakeEmbedder) Close() error               { return nil }

func (fakeEmbedder) EmbedSentences(sentences []string) ([]embedflow.Vector, error) {
	out := make([]embedflow.Vector, len(sentences))
	for i, s := range sentences {
		out[i] = embedflow.Vector{float32(len(s))}
	}
	return out, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, chunks []embedflow.Chunk, cfg embedflow.TextEmbedConfig) ([]embedflow.EmbedUnit, error) {
	out := make([]embedflow.EmbedUnit, len(chunks))
	for i, c := range chunks {
		out[i] = embedflow.EmbedUnit{
			Kind:     embedflow.VectorKindDense,
			Dense:    embedflow.Vector{float32(len(c.Text))},
			Text:     c.Text,
			Metadata: c.SourceMetadata,
		}
	}
	return out, nil
}

func TestEmbedFile_CollectsUnitsWhenNoSinkSupplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello there. General greeting."), 0o644))

	cfg := embedflow.DefaultTextEmbedConfig()
	units, err := embedflow.EmbedFile(context.Background(), path, fakeEmbedder{}, cfg, nil, "")
	require.NoError(t, err)
	assert.NotEmpty(t, units)
}

func TestEmbedFile_StreamsToSuppliedSinkAndReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Streamed content here."), 0o644))

	sink, err := embedflow.NewSink(&embedflow.SinkConfig{Type: "memory"})
	require.NoError(t, err)

	cfg := embedflow.DefaultTextEmbedConfig()
	units, err := embedflow.EmbedFile(context.Background(), path, fakeEmbedder{}, cfg, sink, "notes")
	require.NoError(t, err)
	assert.Nil(t, units)
}

func TestEmbedDirectory_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("text content here"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), []byte{0x00, 0x01}, 0o644))

	cfg := embedflow.DefaultTextEmbedConfig()
	units, err := embedflow.EmbedDirectory(context.Background(), dir, fakeEmbedder{}, cfg, nil, "", []string{"txt"})
	require.NoError(t, err)
	assert.NotEmpty(t, units)
}
