package pipeline_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedflow/embedflow/internal/pipeline"
)

func TestNewChunker_SentenceStrategy(t *testing.T) {
	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.SplittingStrategy = pipeline.StrategySentence
	cfg.ChunkSize = 5
	cfg.Overlap = 0

	chunker, err := pipeline.NewChunker(pipeline.CharCounter{}, cfg)
	require.NoError(t, err)

	segments := []pipeline.RawSegment{
		{
			Kind:     pipeline.SegmentText,
			Content:  "One two three. Four five six seven. Eight nine ten eleven twelve.",
			FilePath: "doc.txt",
		},
	}

	chunks, err := chunker.Chunk(segments, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.Equal(t, "doc.txt", c.SourceMetadata["file_path"])
		assert.False(t, c.IsImage)
	}
}

func TestNewChunker_SizesByCharactersNotWords(t *testing.T) {
	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.ChunkSize = 500
	cfg.Overlap = 0

	chunker, err := pipeline.NewChunker(nil, cfg) // nil -> CharCounter default
	require.NoError(t, err)

	// ~1200 chars of short sentences per page, well under 1200 "words".
	page := strings.Repeat("This is a filler sentence. ", 43)
	segments := []pipeline.RawSegment{
		{Kind: pipeline.SegmentText, Content: page, FilePath: "p1.txt"},
		{Kind: pipeline.SegmentText, Content: page, FilePath: "p2.txt"},
		{Kind: pipeline.SegmentText, Content: page, FilePath: "p3.txt"},
	}

	chunks, err := chunker.Chunk(segments, cfg)
	require.NoError(t, err)
	// Each ~1200-char page must split into at least 2 chunks under a
	// 500-character budget, so 3 pages yield at least 6 chunks total.
	assert.GreaterOrEqual(t, len(chunks), 6)
}

func TestNewChunker_SemanticStrategyRequiresEncoder(t *testing.T) {
	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.SplittingStrategy = pipeline.StrategySemantic
	cfg.SemanticEncoder = nil

	_, err := pipeline.NewChunker(pipeline.WordTokenCounter{}, cfg)
	assert.Error(t, err)
}

func TestNewChunker_UnknownStrategy(t *testing.T) {
	cfg := pipeline.DefaultTextEmbedConfig()
	cfg.SplittingStrategy = pipeline.SplittingStrategy("bogus")

	_, err := pipeline.NewChunker(pipeline.WordTokenCounter{}, cfg)
	assert.Error(t, err)
}

func TestChunker_NonTextSegmentsPassThroughAsSingleChunk(t *testing.T) {
	cfg := pipeline.DefaultTextEmbedConfig()
	chunker, err := pipeline.NewChunker(pipeline.CharCounter{}, cfg)
	require.NoError(t, err)

	segments := []pipeline.RawSegment{
		{Kind: pipeline.SegmentImage, Pixels: []byte{1, 2, 3}, Width: 2, Height: 2, SourcePath: "pic.png"},
	}

	chunks, err := chunker.Chunk(segments, cfg)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsImage)
	assert.Equal(t, "pic.png", chunks[0].SourceMetadata["file_path"])
}

func TestSmartSentenceSplitter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "simple", text: "One. Two. Three.", want: 3},
		{name: "quoted punctuation does not split", text: `She said "wait. stop." then left.`, want: 1},
		{name: "empty", text: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.SmartSentenceSplitter(tt.text)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestWordTokenCounter(t *testing.T) {
	c := pipeline.WordTokenCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 3, c.Count("one two three"))
	assert.Equal(t, 1, c.Count(strings.TrimSpace("  lonely  ")))
}
